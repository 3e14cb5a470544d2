package overlaystudio

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// SessionName returns name trimmed, or a dated default when empty.
func SessionName(name string, now time.Time) string {
	if s := strings.TrimSpace(name); s != "" {
		return s
	}
	return "Canvas " + now.Format("2006-01-02 15:04")
}

// parseIndex reads the :index path parameter.
func parseIndex(c echo.Context) (int, error) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid object index %q", c.Param("index")))
	}
	return idx, nil
}
