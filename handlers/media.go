package handlers

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"studio-admin/db"
	"studio-admin/models"
	"studio-admin/storage"
)

// UploadMediaHandler handles POST /api/media (multipart: file, kind, title).
func UploadMediaHandler(objects *storage.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if objects == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Object storage is not configured"})
		}

		file, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
		}

		kind := c.FormValue("kind", models.MediaImage)
		if kind != models.MediaImage && kind != models.MediaVideo {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "kind must be image or video"})
		}

		title := strings.TrimSpace(c.FormValue("title"))
		if title == "" {
			title = file.Filename
		}

		localPath := filepath.Join(os.TempDir(), uuid.NewString()+"-"+filepath.Base(file.Filename))
		if err := c.SaveFile(file, localPath); err != nil {
			log.Printf("Failed to save upload: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save upload"})
		}
		defer os.Remove(localPath)

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		result, err := objects.Upload(ctx, localPath, "gallery", kind)
		if err != nil {
			log.Printf("Failed to upload media: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload media"})
		}

		item := models.MediaItem{
			ID:        uuid.NewString(),
			Title:     title,
			Kind:      kind,
			SecureURL: result.SecureURL,
			PublicID:  result.PublicID,
			SizeBytes: result.Bytes,
		}
		if result.Format != "" {
			item.Format = &result.Format
		}

		query := `
			INSERT INTO media_items (id, title, kind, secure_url, public_id, format, size_bytes)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`
		err = db.Pool.QueryRow(ctx, query,
			item.ID, item.Title, item.Kind, item.SecureURL, item.PublicID, item.Format, item.SizeBytes,
		).Scan(&item.CreatedAt)
		if err != nil {
			log.Printf("Failed to save media item: %v", err)
			// The object is already in the CDN; try not to leak it.
			if destroyErr := objects.Destroy(ctx, item.PublicID, kind); destroyErr != nil {
				log.Printf("Failed to clean up orphaned object %s: %v", item.PublicID, destroyErr)
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save media item"})
		}

		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// ListMediaHandler handles GET /api/media?kind=image|video (public).
func ListMediaHandler(c *fiber.Ctx) error {
	kind := c.Query("kind")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		SELECT id, title, kind, secure_url, public_id, format, size_bytes, created_at
		FROM media_items
	`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = $1`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch media"})
	}
	defer rows.Close()

	items := []models.MediaItem{}
	for rows.Next() {
		var item models.MediaItem
		if err := rows.Scan(&item.ID, &item.Title, &item.Kind, &item.SecureURL, &item.PublicID, &item.Format, &item.SizeBytes, &item.CreatedAt); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan media item"})
		}
		items = append(items, item)
	}

	return c.JSON(fiber.Map{
		"count": len(items),
		"media": items,
	})
}

// DeleteMediaHandler handles DELETE /api/media/:id. The remote object is
// destroyed best-effort; the row is deleted either way.
func DeleteMediaHandler(objects *storage.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		var publicID, kind string
		query := `SELECT public_id, kind FROM media_items WHERE id = $1`
		if err := db.Pool.QueryRow(ctx, query, id).Scan(&publicID, &kind); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Media item not found"})
		}

		if objects != nil {
			if err := objects.Destroy(ctx, publicID, kind); err != nil {
				log.Printf("Failed to destroy object %s: %v", publicID, err)
			}
		}

		if _, err := db.Pool.Exec(ctx, `DELETE FROM media_items WHERE id = $1`, id); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete media item"})
		}

		return c.JSON(fiber.Map{"message": "Media item deleted"})
	}
}
