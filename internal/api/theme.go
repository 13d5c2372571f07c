package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pace-platform/pace-admin/internal/apiclient"
)

const MaxLogoSize = 2 << 20

var logoTypes = []string{"image/png", "image/jpeg", "image/webp", "image/svg+xml"}

func (c *Client) GetTheme(ctx context.Context, universityID string) (*ThemeSettings, error) {
	settings := new(ThemeSettings)
	err := c.call(ctx, apiclient.Request{
		Op:     "Fetch theme",
		Method: http.MethodGet,
		Path:   "/api/theme",
		Query:  universityQuery(universityID),
	}, settings)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (c *Client) SaveTheme(ctx context.Context, settings ThemeSettings) (*ThemeSettings, error) {
	if err := c.check(settings); err != nil {
		return nil, err
	}

	saved := new(ThemeSettings)
	err := c.call(ctx, apiclient.Request{
		Op:     "Save theme",
		Method: http.MethodPut,
		Path:   "/api/theme",
		JSON:   settings,
	}, saved)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// UploadLogo sends a logo image as multipart form data and returns the URL the
// backend serves it from
func (c *Client) UploadLogo(ctx context.Context, universityID, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &ValidationError{Fields: map[string]string{"logo": "logo is required"}}
	}
	if len(data) > MaxLogoSize {
		return "", &ValidationError{Fields: map[string]string{
			"logo": fmt.Sprintf("logo must be at most %d KB", MaxLogoSize>>10),
		}}
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), logoTypes...) {
		return "", &ValidationError{Fields: map[string]string{
			"logo": fmt.Sprintf("logo must be a PNG, JPEG, WebP or SVG image, got %s", mtype.String()),
		}}
	}

	fields := map[string]string{}
	if universityID != "" {
		fields["universityId"] = universityID
	}

	var res struct {
		URL string `json:"url"`
	}
	err := c.call(ctx, apiclient.Request{
		Op:     "Upload logo",
		Method: http.MethodPost,
		Path:   "/api/theme/logo",
		Form: &apiclient.Multipart{
			Fields: fields,
			Files: []apiclient.File{{
				Field:       "logo",
				Name:        filename,
				ContentType: mtype.String(),
				Data:        data,
			}},
		},
	}, &res)
	if err != nil {
		return "", err
	}
	return res.URL, nil
}
