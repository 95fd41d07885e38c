package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"me.jpg", "me.jpg"},
		{`C:\Users\me\Pictures\camp.png`, "camp.png"},
		{"/home/me/camp.webp", "camp.webp"},
		{"we<ird>\"name\".png", "weirdname.png"},
		{"tab\tname.gif", "tabname.gif"},
		{"  ..hidden.. ", "hidden"},
		{"", defaultUploadName},
		{"/", defaultUploadName},
		{"...", defaultUploadName},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, uploadName(tt.raw), "uploadName(%q)", tt.raw)
	}
}
