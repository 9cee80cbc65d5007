package stream

import (
	"bufio"
	"context"
	"net/url"
	"time"

	"github.com/grafov/m3u8"
	"github.com/pkg/errors"
)

const (
	minPollDuration = time.Second
	maxPollDuration = time.Minute
)

func (s *Stream) doPlaylist(ctx context.Context, u *url.URL) (*m3u8.MediaPlaylist, error) {
	resp, err := s.httpGet(ctx, u.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	p, listType, err := m3u8.DecodeFrom(bufio.NewReader(resp.Body), true)
	if err != nil {
		return nil, errors.Wrap(err, "m3u8.DecodeFrom")
	}
	if listType != m3u8.MEDIA {
		return nil, errors.Errorf("playlist is not a media playlist %+v", listType)
	}
	return p.(*m3u8.MediaPlaylist), nil
}
