package stream

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httputil"
	"time"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/logger"
	"github.com/die-net/lrucache"
	"github.com/gregjones/httpcache"
	"github.com/pkg/errors"
)

const (
	cacheTTL      = time.Hour
	cacheMaxBytes = 256 * 1024 * 1024
	userAgent     = "blocktrack/1.0"
)

// newClient caches responses in an in-memory LRU.
func newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		panic(err)
	}
	return &http.Client{
		Jar:       jar,
		Transport: httpcache.NewTransport(lrucache.New(cacheMaxBytes, int64(cacheTTL.Seconds()))),
	}
}

func (s *Stream) httpGet(ctx context.Context, url string) (*http.Response, error) {
	log := logger.Entry(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "http.NewRequestWithContext")
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("User-Agent", userAgent)

	if s.dumpHTTP {
		if b, err := httputil.DumpRequest(req, false); err == nil {
			log.Debug(string(b))
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "client.Do")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("bad http code %d", resp.StatusCode)
	}

	if s.dumpHTTP {
		if b, err := httputil.DumpResponse(resp, false); err == nil {
			log.Debug(string(b))
		}
	}
	return resp, nil
}
