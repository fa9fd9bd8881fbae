package synapse

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	perr "challengeutils/internal/platform/errors"
)

// FetchEntityFile downloads an entity's file handle into dir and returns the
// written path. The platform answers with a redirect to a presigned storage
// URL, which the transport follows on its own; the filename comes from the
// final response's Content-Disposition, falling back to the entity id
func (c *Client) FetchEntityFile(ctx context.Context, entityID string, version int64, dir string) (string, error) {
	path := "/entity/" + entityID + "/file"
	if version > 0 {
		path = fmt.Sprintf("/entity/%s/version/%d/file", entityID, version)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+path, nil)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "synapse new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if c.opts.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.AuthToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "synapse file request failed")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		_ = resp.Body.Close()
		return "", statusError(resp.StatusCode, path, tail)
	}

	dst := filepath.Join(dir, attachmentName(resp.Header.Get("Content-Disposition"), entityID))
	f, err := os.Create(dst)
	if err != nil {
		_ = drainAndClose(resp.Body)
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "create %s failed", dst)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = resp.Body.Close()
		_ = os.Remove(dst)
		return "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "synapse file read failed")
	}
	_ = resp.Body.Close()
	if err := f.Close(); err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "close %s failed", dst)
	}
	c.log.Debug().Str("entity_id", entityID).Str("path", dst).Msg("entity file downloaded")
	return dst, nil
}

// attachmentName pulls the attachment filename out of a Content-Disposition
// header, stripped of any directory part so a hostile header cannot escape dir
func attachmentName(disposition, fallback string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := filepath.Base(params["filename"]); name != "." && name != string(filepath.Separator) {
				return name
			}
		}
	}
	return fallback
}
