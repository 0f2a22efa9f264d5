package provider

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Options struct {
	AccessKey string
	SecretKey string
	ProjectID string
	Region    string
	Timeout   time.Duration
}

// Factory builds a Client. Implementations register one from init().
type Factory func(log *logrus.Entry, opt Options) (Client, error)

var (
	mu        sync.Mutex
	factories = make(map[string]Factory)
)

func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("provider: %q already registered", name))
	}
	factories[name] = f
}

func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func New(name string, log *logrus.Entry, opt Options) (Client, error) {
	mu.Lock()
	f, ok := factories[name]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unsupported dns provider %q (registered: %v)", name, Names())
	}
	return f(log.WithField("provider", name), opt)
}
