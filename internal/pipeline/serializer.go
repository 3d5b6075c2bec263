package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"insta-iq-go/internal/model"
)

// SerializeCSV 把记录编码为带 9 列表头的 CSV 文本。空输入只输出表头。
func SerializeCSV(records []model.PostRecord) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(model.Columns); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		metadata, err := json.Marshal(r.Metadata)
		if err != nil {
			return "", fmt.Errorf("encode metadata of post %d: %w", r.PostID, err)
		}
		row := []string{
			strconv.FormatInt(r.PostID, 10),
			string(r.PostType),
			strconv.FormatInt(r.Likes, 10),
			strconv.FormatInt(r.Comments, 10),
			r.DatePosted.UTC().Format(model.DateLayout),
			r.Vectorize,
			r.Content,
			string(metadata),
			r.Username,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row for post %d: %w", r.PostID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return sb.String(), nil
}
