// Package web 内嵌单页聊天界面。
package web

import _ "embed"

//go:embed index.html
var indexHTML []byte

// IndexHTML 返回聊天界面的 HTML。
func IndexHTML() []byte {
	return indexHTML
}
