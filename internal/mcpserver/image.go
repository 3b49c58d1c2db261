package mcpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/govcal/internal/vision"
)

// loadImage resolves a data: URI or an http(s) URL into an image. Size and
// type limits are enforced by the orchestrator.
func (s *Server) loadImage(ctx context.Context, ref string) (vision.Image, error) {
	if strings.HasPrefix(ref, "data:") {
		data, mimeType, err := decodeDataURI(ref)
		if err != nil {
			return vision.Image{}, err
		}
		img, err := s.orch.CheckImage(vision.Image{Data: data, MIMEType: mimeType})
		if err != nil {
			return vision.Image{}, err
		}
		if err := checkSniffedType(img.Data, img.MIMEType); err != nil {
			return vision.Image{}, err
		}
		return img, nil
	}
	return s.fetchHTTP(ctx, ref)
}

// decodeDataURI parses a data:<mediatype>;base64,<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mimeType := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	if mimeType == "" {
		return nil, "", fmt.Errorf("data URI has no media type")
	}
	return data, mimeType, nil
}

// fetchHTTP downloads an image from an HTTP/HTTPS URL with host checks.
func (s *Server) fetchHTTP(ctx context.Context, rawURL string) (vision.Image, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return vision.Image{}, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return vision.Image{}, fmt.Errorf("unsupported scheme: %q (use a data: URI or http/https)", parsed.Scheme)
	}
	if err := s.checkHost(parsed.Hostname()); err != nil {
		return vision.Image{}, err
	}

	client := s.httpClient
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return s.checkHost(req.URL.Hostname())
			},
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return vision.Image{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return vision.Image{}, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return vision.Image{}, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	img, err := s.orch.ReadImage(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return vision.Image{}, err
	}
	if err := checkSniffedType(img.Data, img.MIMEType); err != nil {
		return vision.Image{}, err
	}
	return img, nil
}

func (s *Server) checkHost(host string) error {
	if s.allowLoopback {
		return nil
	}
	return checkBlockedHost(host)
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// checkSniffedType verifies the bytes look like the declared image type.
// Only types the sniffer knows are checked.
func checkSniffedType(data []byte, declared string) error {
	detected := strings.Split(http.DetectContentType(data), ";")[0]
	if !strings.HasPrefix(detected, "image/") {
		if detected == "application/octet-stream" {
			return nil
		}
		return fmt.Errorf("content is not an image (detected: %s)", detected)
	}
	if !strings.EqualFold(detected, declared) {
		return fmt.Errorf("content does not match %s (detected: %s)", declared, detected)
	}
	return nil
}
