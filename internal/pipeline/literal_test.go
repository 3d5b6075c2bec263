package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMapLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]interface{}
	}{
		{"empty", "{}", map[string]interface{}{}},
		{"json", `{"post_type": "reels", "username": "nasa"}`, map[string]interface{}{"post_type": "reels", "username": "nasa"}},
		{"single quotes", `{'post_type': 'reels'}`, map[string]interface{}{"post_type": "reels"}},
		{"numbers", `{'a': 1, 'b': -2.5}`, map[string]interface{}{"a": int64(1), "b": -2.5}},
		{"keywords", `{'a': True, 'b': false, 'c': None, 'd': null}`, map[string]interface{}{"a": true, "b": false, "c": nil, "d": nil}},
		{"nested", `{'a': {'b': 'c'},}`, map[string]interface{}{"a": map[string]interface{}{"b": "c"}}},
		{"escapes", `{"a": "line\nbreak é", 'b': 'it\'s'}`, map[string]interface{}{"a": "line\nbreak é", "b": "it's"}},
		{"control escapes", `{"a": "ctl\bz\f", "b": "\u0008\u000c"}`, map[string]interface{}{"a": "ctl\bz\f", "b": "\b\f"}},
		{"surrogate pair", `{"a": "\ud83d\ude00 x"}`, map[string]interface{}{"a": "😀 x"}},
		{"lone surrogate", `{"a": "\ud83d!"}`, map[string]interface{}{"a": "\uFFFD!"}},
		{"list", `{'tags': ['space', 1, [True]], 'empty': []}`, map[string]interface{}{
			"tags":  []interface{}{"space", int64(1), []interface{}{true}},
			"empty": []interface{}{},
		}},
		{"tuple", `{'size': (1080, 1350,)}`, map[string]interface{}{"size": []interface{}{int64(1080), int64(1350)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMapLiteral(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMapLiteralRejects(t *testing.T) {
	for _, in := range []string{"", "[]", "{'a' 1}", "{'a': 1", "{'a': 1} extra", "{'a': bogus}", "{1: 'a'}", "{'a': [1, 2}", "{'a': (1 2)}"} {
		_, err := parseMapLiteral(in)
		assert.Error(t, err, in)
	}
}
