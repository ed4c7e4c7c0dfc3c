package bee

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// loggingTransport logs every request made by the client.
type loggingTransport struct {
	next http.RoundTripper
	log  *zap.Logger
}

func (lt *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log := lt.log.With(zap.String("method", req.Method), zap.String("uri", req.URL.String()))
	resp, err := lt.next.RoundTrip(req)
	if err != nil {
		log.Debug("http request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return resp, err
	}
	log.Debug("http request finished", zap.Int("code", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}
