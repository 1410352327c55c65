package notify

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"upper case", "report.PDF", "pdf"},
		{"no dot", "noext", "unknown"},
		{"double suffix", "archive.tar.gz", "gz"},
		{"trailing dot", "weird.", "unknown"},
		{"non alnum suffix", "file.tar-gz", "unknown"},
		{"empty", "", "unknown"},
		{"dotfile", ".env", "env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extension(tt.in))
		})
	}
}

func TestSizeKB(t *testing.T) {
	tests := []struct {
		bytes int64
		want  int64
	}{
		{0, 1},
		{500, 1},
		{1500, 1},
		{1536, 2},
		{2048, 2},
		{10240, 10},
		{-1, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SizeKB(tt.bytes), "bytes=%d", tt.bytes)
	}
}

func TestSizeKBRoundsToNearest(t *testing.T) {
	// 1500/1024 = 1.46 rounds down; anything from 1536 rounds up.
	assert.Equal(t, int64(1), SizeKB(1500))
	assert.Equal(t, int64(2), SizeKB(2500))
	assert.Equal(t, int64(3), SizeKB(3000))
}

func TestBuildPayload(t *testing.T) {
	uploadedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deleteAt := uploadedAt.Add(24 * time.Hour).Unix()

	payload := BuildPayload(FileInfo{
		URL:  "https://cdn.example/uploads/abc.png",
		Name: "photo.png",
		Size: 10240,
	}, uploadedAt)

	assert.Equal(t, "Upload Bot", payload.Username)
	require.Len(t, payload.Embeds, 1)

	embed := payload.Embeds[0]
	assert.Equal(t, "New file uploaded", embed.Title)
	assert.Equal(t, "[Open file](https://cdn.example/uploads/abc.png)", embed.Description)
	assert.Equal(t, 0x5865f2, embed.Color)
	assert.Equal(t, "2026-03-01T12:00:00.000Z", embed.Timestamp)
	assert.Equal(t, "https://cdn.example/uploads/abc.png", embed.URL)
	assert.Equal(t, "https://cdn.example/uploads/abc.png", embed.Image.URL)
	assert.Equal(t, "UploadThing", embed.Footer.Text)
	assert.Equal(t, discordgo.EmbedTypeRich, embed.Type)

	require.Len(t, embed.Fields, 4)
	assert.Equal(t, &discordgo.MessageEmbedField{Name: "Filename", Value: "photo.png", Inline: true}, embed.Fields[0])
	assert.Equal(t, &discordgo.MessageEmbedField{Name: "Extension", Value: "png", Inline: true}, embed.Fields[1])
	assert.Equal(t, &discordgo.MessageEmbedField{Name: "Size", Value: "10 KB", Inline: true}, embed.Fields[2])
	assert.Equal(t, "Will delete", embed.Fields[3].Name)
	assert.False(t, embed.Fields[3].Inline)
	assert.Contains(t, embed.Fields[3].Value, "<t:"+strconv.FormatInt(deleteAt, 10)+":F>")
	assert.Contains(t, embed.Fields[3].Value, "(in <t:"+strconv.FormatInt(deleteAt, 10)+":R>)")
}

func TestBuildPayloadDescription(t *testing.T) {
	payload := BuildPayload(FileInfo{
		URL:         "https://cdn.example/x",
		Name:        "notes.txt",
		Size:        1,
		Description: strings.Repeat("d", 2000),
	}, time.Now())

	fields := payload.Embeds[0].Fields
	require.Len(t, fields, 5)
	assert.Equal(t, "Description", fields[4].Name)
	assert.Len(t, fields[4].Value, 1024)
}

func TestBuildPayloadMissingName(t *testing.T) {
	payload := BuildPayload(FileInfo{URL: "https://cdn.example/x"}, time.Now())

	fields := payload.Embeds[0].Fields
	assert.Equal(t, "unknown", fields[0].Value)
	assert.Equal(t, "unknown", fields[1].Value)
	assert.Equal(t, "1 KB", fields[2].Value)
}
