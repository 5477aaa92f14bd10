package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "index.html", want: "text/html; charset=utf-8"},
		{name: "script.js", want: "application/javascript"},
		{name: "style.css", want: "text/css; charset=utf-8"},
		{name: "assets/asma.mp3", want: "audio/mpeg"},
		{name: "assets/sub/icon.PNG", want: "image/png"},
		{name: "README", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentType(tt.name))
		})
	}
}
