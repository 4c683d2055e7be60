// Package dropbox implements the file store client over the Dropbox
// API: recursive folder listing with continuation cursors, and content
// download by file ID.
package dropbox

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"golang.org/x/oauth2"

	"github.com/arkiv-labs/arkiv/internal/core/domain"
	"github.com/arkiv-labs/arkiv/internal/core/ports/driven"
)

// tokenURL is the Dropbox OAuth2 token endpoint.
const tokenURL = "https://api.dropboxapi.com/oauth2/token"

// Ensure Client implements the interface.
var _ driven.FileStoreClient = (*Client)(nil)

// Config holds Dropbox credentials. Either a long-lived access token
// or an app key/secret plus refresh token must be provided.
type Config struct {
	AccessToken string

	AppKey       string
	AppSecret    string
	RefreshToken string
}

// Client is a Dropbox-backed file store client.
type Client struct {
	api files.Client
}

// New creates a Dropbox client. A refresh token is exchanged for an
// access token up front.
func New(ctx context.Context, cfg Config) (*Client, error) {
	token := cfg.AccessToken
	if token == "" && cfg.RefreshToken != "" {
		oauthCfg := &oauth2.Config{
			ClientID:     cfg.AppKey,
			ClientSecret: cfg.AppSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		}
		tok, err := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}).Token()
		if err != nil {
			return nil, fmt.Errorf("refresh dropbox token: %w", err)
		}
		token = tok.AccessToken
	}
	if token == "" {
		return nil, fmt.Errorf("%w: dropbox access token or refresh token is required", domain.ErrInvalidConfig)
	}

	return &Client{api: files.New(dropbox.Config{Token: token})}, nil
}

// ListFolder starts a full recursive listing of the folder. Dropbox
// expects "" (not "/") for the root.
func (c *Client) ListFolder(_ context.Context, path string) (*driven.ChangePage, error) {
	if path == "/" {
		path = ""
	}
	arg := files.NewListFolderArg(path)
	arg.Recursive = true
	arg.IncludeDeleted = true

	res, err := c.api.ListFolder(arg)
	if err != nil {
		return nil, fmt.Errorf("dropbox list_folder: %w", err)
	}
	return convertPage(res), nil
}

// ListFolderContinue resumes listing from a cursor. A reset response
// (cursor expired server-side) maps to domain.ErrInvalidCursor so the
// engine can restart from a full listing.
func (c *Client) ListFolderContinue(_ context.Context, cursor string) (*driven.ChangePage, error) {
	res, err := c.api.ListFolderContinue(files.NewListFolderContinueArg(cursor))
	if err != nil {
		var apiErr files.ListFolderContinueAPIError
		if errors.As(err, &apiErr) && apiErr.EndpointError != nil &&
			apiErr.EndpointError.Tag == files.ListFolderContinueErrorReset {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
		}
		return nil, fmt.Errorf("dropbox list_folder/continue: %w", err)
	}
	return convertPage(res), nil
}

// Download fetches a file's content by its stable identifier.
func (c *Client) Download(_ context.Context, fileID string) ([]byte, error) {
	_, rc, err := c.api.Download(files.NewDownloadArg(fileID))
	if err != nil {
		return nil, fmt.Errorf("dropbox download %s: %w", fileID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read download %s: %w", fileID, err)
	}
	return data, nil
}

// convertPage maps a Dropbox listing result to a change page.
func convertPage(res *files.ListFolderResult) *driven.ChangePage {
	page := &driven.ChangePage{
		Cursor:  res.Cursor,
		HasMore: res.HasMore,
		Entries: make([]driven.ChangeEntry, 0, len(res.Entries)),
	}
	for _, entry := range res.Entries {
		switch m := entry.(type) {
		case *files.FileMetadata:
			page.Entries = append(page.Entries, driven.ChangeEntry{
				Kind:           driven.KindFile,
				ID:             m.Id,
				Name:           m.Name,
				PathDisplay:    m.PathDisplay,
				PathLower:      m.PathLower,
				Size:           int64(m.Size),
				ServerModified: m.ServerModified,
			})
		case *files.FolderMetadata:
			page.Entries = append(page.Entries, driven.ChangeEntry{
				Kind:        driven.KindFolder,
				ID:          m.Id,
				Name:        m.Name,
				PathDisplay: m.PathDisplay,
				PathLower:   m.PathLower,
			})
		case *files.DeletedMetadata:
			page.Entries = append(page.Entries, driven.ChangeEntry{
				Kind:        driven.KindDeleted,
				Name:        m.Name,
				PathDisplay: m.PathDisplay,
				PathLower:   m.PathLower,
			})
		}
	}
	return page
}
