// Package storage wraps the Cloudinary SDK behind the two operations this
// service needs: upload a local file and destroy a stored object.
package storage

import (
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// UploadResult identifies an object stored in the CDN.
type UploadResult struct {
	SecureURL string
	PublicID  string
	Format    string
	Bytes     int64
}

type Client struct {
	cld *cloudinary.Cloudinary
}

func NewClient(cloudinaryURL string) (*Client, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	return &Client{cld: cld}, nil
}

func (c *Client) Upload(ctx context.Context, localPath, folder, resourceType string) (*UploadResult, error) {
	resp, err := c.cld.Upload.Upload(ctx, localPath, uploader.UploadParams{
		Folder:       folder,
		ResourceType: resourceType,
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload failed: %s", resp.Error.Message)
	}

	return &UploadResult{
		SecureURL: resp.SecureURL,
		PublicID:  resp.PublicID,
		Format:    resp.Format,
		Bytes:     int64(resp.Bytes),
	}, nil
}

func (c *Client) Destroy(ctx context.Context, publicID, resourceType string) error {
	_, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy failed: %w", err)
	}
	return nil
}
