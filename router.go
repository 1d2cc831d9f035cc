package mqtt311

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	topicCacheSize = 256
	topicCacheTTL  = time.Hour
)

type route struct {
	filter  Topic
	handler PublishHandler
}

// Router dispatches inbound publishes to handlers by topic filter. Routes
// are tried in registration order and the first matching filter wins; a
// publish matching no route goes to the default handler when one is set,
// and is dropped otherwise.
//
// Parsed topics of recently seen publishes are cached, so hot topics skip
// re-parsing on every message.
type Router struct {
	mu       sync.RWMutex
	routes   []route
	fallback PublishHandler
	cache    *expirable.LRU[string, Topic]
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		cache: expirable.NewLRU[string, Topic](topicCacheSize, nil, topicCacheTTL),
	}
}

// Handle registers a handler for a topic filter. The filter is parsed and
// validated once, at registration.
func (r *Router) Handle(filter string, handler PublishHandler) error {
	parsed, err := ParseTopic(filter)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.routes = append(r.routes, route{filter: parsed, handler: handler})
	r.mu.Unlock()

	return nil
}

// Default registers the handler for publishes matching no route.
func (r *Router) Default(handler PublishHandler) {
	r.mu.Lock()
	r.fallback = handler
	r.mu.Unlock()
}

// Dispatch routes one publish. It implements PublishHandler, so a Router
// can be passed to WithPublishHandler directly via r.Dispatch.
func (r *Router) Dispatch(ctx context.Context, publish *IncomingPublish) error {
	topic, err := r.parse(publish.Topic())
	if err != nil {
		return err
	}

	r.mu.RLock()
	routes := r.routes
	fallback := r.fallback
	r.mu.RUnlock()

	for _, rt := range routes {
		if rt.filter.MatchTopic(topic) {
			return rt.handler(ctx, publish)
		}
	}

	if fallback != nil {
		return fallback(ctx, publish)
	}

	return nil
}

func (r *Router) parse(name string) (Topic, error) {
	if topic, ok := r.cache.Get(name); ok {
		return topic, nil
	}

	topic, err := ParseTopicName(name)
	if err != nil {
		return nil, err
	}

	r.cache.Add(name, topic)
	return topic, nil
}
