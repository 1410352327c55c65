package notify

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"upload-relay/internal/domain/upload"

	"github.com/bwmarrin/discordgo"
)

const (
	Username     = "Upload Bot"
	Title        = "New file uploaded"
	FooterText   = "UploadThing"
	AccentColor  = 0x5865f2
	UnknownValue = "unknown"

	// DefaultRetention is how long the provider keeps an uploaded file.
	DefaultRetention = 24 * time.Hour
)

var extensionPattern = regexp.MustCompile(`\.([a-zA-Z0-9]+)$`)

// FileInfo is the upload metadata a notification is built from.
type FileInfo struct {
	URL         string
	Name        string
	Size        int64
	Description string
}

// Extension returns the lower-cased suffix after the last dot, or "unknown".
func Extension(name string) string {
	match := extensionPattern.FindStringSubmatch(name)
	if match == nil {
		return UnknownValue
	}
	return strings.ToLower(match[1])
}

// SizeKB rounds a byte count to whole kilobytes, never below 1.
func SizeKB(size int64) int64 {
	if size < 0 {
		size = 0
	}
	kb := int64(math.Round(float64(size) / 1024))
	return max(1, kb)
}

// BuildPayload composes the webhook message for one uploaded file.
func BuildPayload(info FileInfo, uploadedAt time.Time) *discordgo.WebhookParams {
	return buildPayload(info, uploadedAt, DefaultRetention)
}

func buildPayload(info FileInfo, uploadedAt time.Time, retention time.Duration) *discordgo.WebhookParams {
	name := info.Name
	if name == "" {
		name = UnknownValue
	}
	deleteAt := uploadedAt.Add(retention).Unix()

	fields := []*discordgo.MessageEmbedField{
		{Name: "Filename", Value: name, Inline: true},
		{Name: "Extension", Value: Extension(info.Name), Inline: true},
		{Name: "Size", Value: fmt.Sprintf("%d KB", SizeKB(info.Size)), Inline: true},
		{Name: "Will delete", Value: fmt.Sprintf("<t:%d:F> (in <t:%d:R>)", deleteAt, deleteAt), Inline: false},
	}
	if description := upload.TruncateDescription(info.Description); description != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Description", Value: description, Inline: false})
	}

	return &discordgo.WebhookParams{
		Username: Username,
		Embeds: []*discordgo.MessageEmbed{{
			Type:        discordgo.EmbedTypeRich,
			Title:       Title,
			Description: fmt.Sprintf("[Open file](%s)", info.URL),
			Color:       AccentColor,
			Timestamp:   uploadedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			Fields:      fields,
			URL:         info.URL,
			Image:       &discordgo.MessageEmbedImage{URL: info.URL},
			Footer:      &discordgo.MessageEmbedFooter{Text: FooterText},
		}},
	}
}
