package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"time"

	"cliplab/internal/config"
	"cliplab/internal/logging"
	"cliplab/internal/media"
	"cliplab/internal/services"
)

// folderURLPattern extracts the folder ID from a browser-copied folder URL,
// e.g. https://store.example.com/drive/folders/<id>?usp=sharing.
var (
	folderURLPattern = regexp.MustCompile(`folders/([A-Za-z0-9_-]+)`)
	bareFolderID     = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// FolderIDFromURL pulls the opaque folder identifier out of a shared folder
// URL. A raw ID with no URL decoration passes through unchanged.
func FolderIDFromURL(raw string) (string, error) {
	if raw == "" {
		return "", services.Wrap(services.ErrValidation, "upload", "parse folder url",
			"remote folder URL is not configured", nil)
	}
	if m := folderURLPattern.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	if bareFolderID.MatchString(raw) {
		return raw, nil
	}
	return "", services.Wrap(services.ErrValidation, "upload", "parse folder url",
		fmt.Sprintf("cannot extract a folder ID from %q", raw), nil)
}

// RemoteSink uploads artifacts into a bearer-token-authenticated folder
// store. Each item is a multipart/related request carrying a JSON metadata
// part and the binary media part.
type RemoteSink struct {
	endpoint       string
	uploadEndpoint string
	token          string
	folderURL      string
	folderID       string

	client *http.Client
	logger *slog.Logger
}

// NewRemoteSink builds a remote sink from the remote configuration section.
func NewRemoteSink(cfg *config.Config, logger *slog.Logger) *RemoteSink {
	timeout := time.Duration(cfg.Remote.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	uploadEndpoint := cfg.Remote.UploadEndpoint
	if uploadEndpoint == "" {
		uploadEndpoint = cfg.Remote.Endpoint
	}
	return &RemoteSink{
		endpoint:       cfg.Remote.Endpoint,
		uploadEndpoint: uploadEndpoint,
		token:          cfg.Remote.Token,
		folderURL:      cfg.Remote.FolderURL,
		client:         &http.Client{Timeout: timeout},
		logger:         logging.NewComponentLogger(logger, "upload"),
	}
}

func (s *RemoteSink) Name() string { return "remote" }

// CheckAccess probes the store with the configured token. It distinguishes a
// rejected token from the store being unreachable.
func (s *RemoteSink) CheckAccess(ctx context.Context) error {
	if s.token == "" {
		return services.Wrap(services.ErrUnauthenticated, "upload", "check access",
			"remote token is not configured", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/about", nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "upload", "check access", "", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "upload", "check access", "store unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrUnauthenticated, "upload", "check access",
			fmt.Sprintf("token rejected with HTTP %d", resp.StatusCode), nil)
	default:
		return services.Wrap(services.ErrTransient, "upload", "check access",
			fmt.Sprintf("unexpected HTTP %d from store", resp.StatusCode), nil)
	}
}

// Prepare resolves the target folder and validates the token before any
// artifact is attempted.
func (s *RemoteSink) Prepare(ctx context.Context) error {
	folderID, err := FolderIDFromURL(s.folderURL)
	if err != nil {
		return err
	}
	s.folderID = folderID

	return s.CheckAccess(ctx)
}

// uploadMetadata is the JSON metadata part of a multipart upload.
type uploadMetadata struct {
	Name    string   `json:"name"`
	Parents []string `json:"parents"`
}

// Save uploads one artifact into the resolved folder.
func (s *RemoteSink) Save(ctx context.Context, artifact *media.Artifact) error {
	body, contentType, err := s.multipartBody(artifact)
	if err != nil {
		return services.Wrap(services.ErrSubsystem, "upload", "encode upload", artifact.Filename, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.uploadEndpoint+"?uploadType=multipart", bytes.NewReader(body))
	if err != nil {
		return services.Wrap(services.ErrValidation, "upload", "upload artifact", artifact.Filename, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.token)

	s.logger.Debug("uploading artifact",
		logging.String(logging.FieldFilename, artifact.Filename),
		logging.String("folder_id", s.folderID),
		logging.Int("bytes", len(artifact.Payload)),
	)

	resp, err := s.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "upload", "upload artifact", artifact.Filename, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrUnauthenticated, "upload", "upload artifact",
			fmt.Sprintf("%s: token rejected with HTTP %d", artifact.Filename, resp.StatusCode), nil)
	default:
		return services.Wrap(services.ErrTransient, "upload", "upload artifact",
			fmt.Sprintf("%s: HTTP %d: %s", artifact.Filename, resp.StatusCode, bytes.TrimSpace(respBody)), nil)
	}
}

// multipartBody renders the two-part related body: JSON metadata naming the
// file and its parent folder, then the raw media bytes.
func (s *RemoteSink) multipartBody(artifact *media.Artifact) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := writer.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	meta := uploadMetadata{Name: artifact.Filename, Parents: []string{s.folderID}}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return nil, "", err
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", artifact.MIMEType)
	mediaPart, err := writer.CreatePart(mediaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := mediaPart.Write(artifact.Payload); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "multipart/related; boundary=" + writer.Boundary(), nil
}
