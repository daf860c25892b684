package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"studio-admin/models"
)

var geoClient = &http.Client{Timeout: 5 * time.Second}

// LookupGeo resolves an IP through an ipapi.co style JSON endpoint. It is
// strictly best-effort: any failure returns nil and the caller proceeds
// without enrichment.
func LookupGeo(ctx context.Context, baseURL, ip string) *models.Geolocation {
	if ip == "" {
		return nil
	}

	url := fmt.Sprintf("%s/%s/json/", strings.TrimRight(baseURL, "/"), ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}

	resp, err := geoClient.Do(req)
	if err != nil {
		log.Printf("Geolocation lookup failed for %s: %v", ip, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Geolocation lookup for %s returned status %d", ip, resp.StatusCode)
		return nil
	}

	var geo models.Geolocation
	if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		return nil
	}
	geo.IP = ip
	return &geo
}
