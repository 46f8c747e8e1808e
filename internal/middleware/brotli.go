package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// Brotli compresses responses with brotli when the client accepts it.
// Small responses pass through uncompressed: below minLength the header
// overhead outweighs the savings.
func Brotli() gin.HandlerFunc {
	return BrotliLevel(brotli.DefaultCompression, 1024)
}

// BrotliLevel returns a brotli middleware with an explicit quality level
// and minimum payload size.
func BrotliLevel(quality, minLength int) gin.HandlerFunc {
	if quality < brotli.BestSpeed || quality > brotli.BestCompression {
		quality = brotli.DefaultCompression
	}
	if minLength <= 0 {
		minLength = 1024
	}

	return func(c *gin.Context) {
		if streamingRequest(c) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		bw := &brotliWriter{
			ResponseWriter: c.Writer,
			minLength:      minLength,
			writer:         brotli.NewWriterLevel(c.Writer, quality),
		}

		defer func() {
			if err := bw.finish(); err != nil {
				_ = c.Error(err)
			}
		}()

		c.Writer = bw
		c.Next()
	}
}

// brotliWriter buffers output until minLength is reached, then switches
// to compressed mode. The decision is one-way per response because the
// Content-Encoding header cannot be unsent.
type brotliWriter struct {
	gin.ResponseWriter
	writer     *brotli.Writer
	buf        []byte
	minLength  int
	compressed bool
}

func (bw *brotliWriter) Write(data []byte) (int, error) {
	bw.buf = append(bw.buf, data...)

	if len(bw.buf) >= bw.minLength {
		if !bw.compressed {
			bw.compressed = true
			bw.ResponseWriter.Header().Set("Content-Encoding", "br")
			bw.ResponseWriter.Header().Del("Content-Length")
		}
		n, err := bw.writer.Write(bw.buf)
		bw.buf = bw.buf[:0]
		return n, err
	}

	return len(data), nil
}

func (bw *brotliWriter) WriteString(s string) (int, error) {
	return bw.Write([]byte(s))
}

// Flush is called by streaming endpoints. Drains the buffer as plain
// text and forwards the flush to the underlying writer.
func (bw *brotliWriter) Flush() {
	if !bw.compressed && len(bw.buf) > 0 {
		_, _ = bw.ResponseWriter.Write(bw.buf)
		bw.buf = bw.buf[:0]
	}
	bw.ResponseWriter.Flush()
}

// finish drains whatever is left at the end of the request: through the
// compressor if compression started, as plain bytes otherwise.
func (bw *brotliWriter) finish() error {
	if bw.compressed {
		if len(bw.buf) > 0 {
			if _, err := bw.writer.Write(bw.buf); err != nil {
				return err
			}
			bw.buf = bw.buf[:0]
		}
		return bw.writer.Close()
	}
	if len(bw.buf) > 0 {
		_, err := bw.ResponseWriter.Write(bw.buf)
		bw.buf = bw.buf[:0]
		return err
	}
	return nil
}

// streamingRequest reports protocols that are incompatible with buffered
// compression and must be passed through untouched.
func streamingRequest(c *gin.Context) bool {
	// SSE requires immediate streaming — buffering breaks it
	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		return true
	}
	// WebSocket upgrades must not be intercepted — the Upgrade handshake
	// will fail if the response is wrapped or buffered
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

func acceptsBrotli(r *http.Request) bool {
	ae := r.Header.Get("Accept-Encoding")
	for _, enc := range strings.Split(ae, ",") {
		if strings.TrimSpace(strings.ToLower(enc)) == "br" {
			return true
		}
	}
	return false
}
