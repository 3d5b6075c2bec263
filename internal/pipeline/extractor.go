package pipeline

import (
	"fmt"

	"insta-iq-go/internal/model"
	"insta-iq-go/pkg/scraper"
)

// summaryTemplate 生成 content / vectorize 共用的可读摘要。
const summaryTemplate = `A post with username:"%s", post_id: "%d", post_type: "%s", likes: %d, comments: %d, date_posted: "%s".`

// ExtractRecord 把一条抓取到的帖子转换为扁平记录。纯函数，无副作用。
func ExtractRecord(username string, post scraper.Post) model.PostRecord {
	postType := model.PostTypeOf(post.IsVideo)
	posted := post.TakenAt.UTC()
	summary := fmt.Sprintf(summaryTemplate, username, post.MediaID, postType, post.Likes, post.Comments, posted.Format(model.DateLayout))

	return model.PostRecord{
		PostID:     post.MediaID,
		PostType:   postType,
		Likes:      post.Likes,
		Comments:   post.Comments,
		DatePosted: posted,
		Vectorize:  summary,
		Content:    summary,
		Metadata: map[string]string{
			"post_type": string(postType),
			"username":  username,
		},
		Username: username,
	}
}

// ExtractRecords 按抓取顺序转换 profile 下的所有帖子。
func ExtractRecords(profile *scraper.Profile) []model.PostRecord {
	records := make([]model.PostRecord, 0, len(profile.Posts))
	for _, post := range profile.Posts {
		records = append(records, ExtractRecord(profile.Username, post))
	}
	return records
}
