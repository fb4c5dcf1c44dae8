package upstream

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"skillswap-gateway/internal/models"
)

// PhotosByProfile returns the photos of a profile with absolute URLs
func (c *Client) PhotosByProfile(ctx context.Context, profileID int64) ([]*models.Photo, error) {
	var wire []photoWire
	if err := c.get(ctx, fmt.Sprintf("/api/photos/profile/%d", profileID), &wire); err != nil {
		return nil, fmt.Errorf("failed to list photos of profile %d: %w", profileID, err)
	}
	photos := make([]*models.Photo, 0, len(wire))
	for i := range wire {
		p := wire[i].toModel()
		p.URL = c.absoluteURL(p.URL)
		photos = append(photos, p)
	}
	return photos, nil
}

// PrimaryPhotoURL returns the URL of the profile's primary photo, or "" when it has none
func (c *Client) PrimaryPhotoURL(ctx context.Context, profileID int64) (string, error) {
	photos, err := c.PhotosByProfile(ctx, profileID)
	if err != nil {
		return "", err
	}
	if p := models.PrimaryPhoto(photos); p != nil {
		return p.URL, nil
	}
	return "", nil
}

// UploadPhoto streams a photo to the backend as multipart form data with the
// fields file, profileId and isPrimary.
func (c *Client) UploadPhoto(ctx context.Context, profileID int64, isPrimary bool, filename string, r io.Reader) (*models.Photo, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		err := writePhotoForm(form, profileID, isPrimary, filename, r)
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/photos", pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var wire photoWire
	if err := c.send(req, &wire); err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to upload photo for profile %d: %w", profileID, err)
	}
	photo := wire.toModel()
	photo.URL = c.absoluteURL(photo.URL)
	return photo, nil
}

func writePhotoForm(form *multipart.Writer, profileID int64, isPrimary bool, filename string, r io.Reader) error {
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	if err := form.WriteField("profileId", strconv.FormatInt(profileID, 10)); err != nil {
		return err
	}
	return form.WriteField("isPrimary", strconv.FormatBool(isPrimary))
}
