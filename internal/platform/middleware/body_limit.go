package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// BodyLimit caps the request body size. The limit is a size string
// ("1M", "512K", "2G"); a bare number means bytes and anything
// unparseable falls back to 1M. Oversized requests get HTTP 413.
func BodyLimit(limit string) echo.MiddlewareFunc {
	maxBytes := parseLimit(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			// A declared length lets us reject before reading anything.
			if req.ContentLength > maxBytes {
				return c.JSON(http.StatusRequestEntityTooLarge, map[string]interface{}{
					"error":   "Request body too large",
					"details": fmt.Sprintf("Request body exceeds maximum allowed size of %d bytes", maxBytes),
				})
			}

			// Chunked requests and wrong Content-Length headers are
			// caught while the handler reads.
			req.Body = &cappedBody{src: req.Body, left: maxBytes}
			return next(c)
		}
	}
}

// cappedBody refuses to hand out more than left bytes.
type cappedBody struct {
	src  io.ReadCloser
	left int64
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.left < 0 {
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}
	if int64(len(p)) > b.left+1 {
		p = p[:b.left+1]
	}
	n, err := b.src.Read(p)
	b.left -= int64(n)
	if b.left < 0 {
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}
	return n, err
}

func (b *cappedBody) Close() error { return b.src.Close() }

// parseLimit converts a "1M" style size to bytes.
func parseLimit(s string) int64 {
	const fallback = 1 << 20

	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return fallback
	}

	var shift uint
	switch {
	case strings.HasSuffix(s, "G"), strings.HasSuffix(s, "GB"):
		shift = 30
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "MB"):
		shift = 20
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "KB"):
		shift = 10
	}
	if shift != 0 {
		s = strings.TrimRight(s, "KMGB")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return n << shift
}
