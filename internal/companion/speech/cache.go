package speech

import (
	"context"

	"github.com/msto63/signspeak/pkg/core/cache"
)

// cachingRemote keeps fetched audio so a repeated sentence is played
// without another round trip. Failures are not cached.
type cachingRemote struct {
	remote Remote
	cache  *cache.Cache
}

func (c *cachingRemote) FetchSpeech(ctx context.Context, address, text, language string) ([]byte, error) {
	key := audioKey(address, text, language)
	if data, ok := c.cache.Get(key); ok {
		return data, nil
	}

	data, err := c.remote.FetchSpeech(ctx, address, text, language)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, data)
	return data, nil
}

func audioKey(address, text, language string) string {
	return address + "\x00" + language + "\x00" + text
}
