package restapi

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// compressionMinSize keeps tiny bodies such as error payloads uncompressed.
const compressionMinSize = 512

// CompressionMiddleware gzips responses for clients that accept it.
func CompressionMiddleware(next http.Handler) http.Handler {
	wrapper, err := gzhttp.NewWrapper(gzhttp.MinSize(compressionMinSize))
	if err != nil {
		return gzhttp.GzipHandler(next)
	}
	return wrapper(next)
}
