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

func TestMapDocumentsHeaderOnly(t *testing.T) {
	docs, err := MapDocuments(csvHeader, model.ColumnVectorize)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMapDocumentsLegacyRow(t *testing.T) {
	blob := csvHeader +
		`7,static-image,3,4,2022-05-06T07:08:09,summary text,content text,"{'post_type': 'static-image', 'username': 'nasa'}",nasa` + "\n"

	docs, err := MapDocuments(blob, model.ColumnVectorize)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, int64(7), doc.PostID)
	assert.Equal(t, model.PostTypeStaticImage, doc.PostType)
	assert.Equal(t, "summary text", doc.Vectorize)
	assert.Equal(t, "content text", doc.Content)
	assert.Equal(t, map[string]interface{}{"post_type": "static_image", "username": "nasa"}, doc.Metadata)
	assert.Equal(t, "nasa:7", doc.Key())
}

func TestMapDocumentsMissingVectorColumn(t *testing.T) {
	header := "post_id,post_type,likes,comments,date_posted,content,metadata,username\n"
	for _, rows := range []string{"", "1,reels,0,0,2022-01-01T00:00:00,c,{},u\n"} {
		_, err := MapDocuments(header+rows, model.ColumnVectorize)
		require.ErrorIs(t, err, ErrInvalidSchema)
		assert.Contains(t, err.Error(), "column 'vectorize' not found in the CSV data")
	}
}

func TestMapDocumentsEmptyBlob(t *testing.T) {
	_, err := MapDocuments("", model.ColumnVectorize)
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestMapDocumentsMissingOtherColumn(t *testing.T) {
	header := strings.Replace(csvHeader, ",likes", "", 1)
	_, err := MapDocuments(header, model.ColumnVectorize)
	require.ErrorIs(t, err, ErrInvalidSchema)
	assert.Contains(t, err.Error(), "'likes'")
}

func TestMapDocumentsRowErrorsAbort(t *testing.T) {
	good := `1,reels,0,0,2022-01-01T00:00:00,v,c,{},u` + "\n"
	tests := []struct {
		name string
		row  string
		want error
	}{
		{"bad metadata", `2,reels,0,0,2022-01-01T00:00:00,v,c,not a map,u` + "\n", ErrInvalidMetadata},
		{"bad post id", `x,reels,0,0,2022-01-01T00:00:00,v,c,{},u` + "\n", ErrInvalidRow},
		{"bad post type", `2,carousel,0,0,2022-01-01T00:00:00,v,c,{},u` + "\n", ErrInvalidRow},
		{"bad likes", `2,reels,many,0,2022-01-01T00:00:00,v,c,{},u` + "\n", ErrInvalidRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := MapDocuments(csvHeader+good+tt.row, model.ColumnVectorize)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, docs)
		})
	}
}

func TestSerializeThenMapKeepsControlAndAstralCharacters(t *testing.T) {
	usernames := []string{"ctl\bz", "form\ffeed", "tab\tname", "emoji😀𝄞", `quote"comma,name`, "<html>&amp;"}
	records := make([]model.PostRecord, 0, len(usernames))
	for i, name := range usernames {
		records = append(records, ExtractRecord(name, scraper.Post{MediaID: int64(i + 1), Likes: 5, TakenAt: time.Unix(1700000000, 0)}))
	}

	blob, err := SerializeCSV(records)
	require.NoError(t, err)
	docs, err := MapDocuments(blob, model.ColumnVectorize)
	require.NoError(t, err)
	require.Len(t, docs, len(records))

	for i, rec := range records {
		want := make(map[string]interface{}, len(rec.Metadata))
		for k, v := range rec.Metadata {
			want[k] = v
		}
		assert.Equal(t, want, docs[i].Metadata, rec.Username)
		assert.Equal(t, rec.Username, docs[i].Username)
		assert.Equal(t, rec.Vectorize, docs[i].Vectorize)
	}
}
