package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insta-iq-go/internal/model"
	"insta-iq-go/pkg/scraper"
)

const csvHeader = "post_id,post_type,likes,comments,date_posted,vectorize,content,metadata,username\n"

func TestSerializeCSVEmpty(t *testing.T) {
	blob, err := SerializeCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, csvHeader, blob)
}

func TestSerializeCSVQuotesSummaries(t *testing.T) {
	rec := ExtractRecord("nasa", scraper.Post{MediaID: 42, Likes: 1, Comments: 2, TakenAt: time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)})

	blob, err := SerializeCSV([]model.PostRecord{rec})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(blob, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.TrimSuffix(csvHeader, "\n"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "42,static_image,1,2,2023-01-02T03:04:05,"))
	assert.Contains(t, lines[1], `"A post with username:""nasa"", post_id: ""42""`)
	assert.True(t, strings.HasSuffix(lines[1], ",nasa"))
}

func TestSerializeThenMapRoundTrip(t *testing.T) {
	profile := &scraper.Profile{Username: "nasa"}
	for i := 0; i < 5; i++ {
		profile.Posts = append(profile.Posts, scraper.Post{
			MediaID:  int64(1000 + i),
			IsVideo:  i%2 == 0,
			Likes:    int64(i * 10),
			Comments: int64(i),
			TakenAt:  time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC),
		})
	}
	records := ExtractRecords(profile)

	blob, err := SerializeCSV(records)
	require.NoError(t, err)
	docs, err := MapDocuments(blob, model.ColumnVectorize)
	require.NoError(t, err)
	require.Len(t, docs, len(records))

	for i, doc := range docs {
		rec := records[i]
		assert.Equal(t, rec.PostID, doc.PostID)
		assert.Equal(t, rec.PostType, doc.PostType)
		assert.Equal(t, rec.Likes, doc.Likes)
		assert.Equal(t, rec.Comments, doc.Comments)
		assert.Equal(t, rec.DatePosted.Format(model.DateLayout), doc.DatePosted)
		assert.Equal(t, rec.Vectorize, doc.Vectorize)
		assert.Equal(t, rec.Content, doc.Content)
		assert.Equal(t, rec.Username, doc.Username)
		assert.Equal(t, string(rec.PostType), doc.Metadata["post_type"])
		assert.Equal(t, "nasa", doc.Metadata["username"])
	}
}
