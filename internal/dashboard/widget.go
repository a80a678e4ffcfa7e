// Package dashboard caches rendered dashboard widget data per widget,
// parameters and user.
package dashboard

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrCouldNotFormatDateTime is returned by FormatDateParam for values that
// are not dates.
var ErrCouldNotFormatDateTime = errors.New("cannot format date parameter as a string")

// DateParamLayout is the layout of date parameters in widget cache keys.
const DateParamLayout = "2006-01-02 15:04:05"

// Widget is a configured dashboard widget. A zero CacheTimeout uses the
// factory default.
type Widget struct {
	ID           int64          `json:"id"`
	Type         string         `json:"type"`
	Params       map[string]any `json:"params,omitempty"`
	CacheTimeout time.Duration  `json:"cacheTimeout,omitempty"`
}

type entry struct {
	data      map[string]any
	expiresAt time.Time
}

// Factory creates widget details sharing one cache.
type Factory struct {
	cache *expirable.LRU[string, entry]
	ttl   time.Duration
	now   func() time.Time
}

// NewFactory returns a Factory caching up to size widgets for at most ttl.
func NewFactory(size int, ttl time.Duration) *Factory {
	return &Factory{
		cache: expirable.NewLRU[string, entry](size, nil, ttl),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Create returns the detail of widget as seen by userID.
func (f *Factory) Create(widget Widget, userID int64) *Detail {
	return &Detail{
		factory:  f,
		widget:   widget,
		userID:   userID,
		cacheKey: cacheKey(widget, userID),
	}
}

// Purge drops every cached widget.
func (f *Factory) Purge() {
	f.cache.Purge()
}

func cacheKey(w Widget, userID int64) string {
	id := ""
	if w.ID != 0 {
		id = strconv.FormatInt(w.ID, 10)
	}

	// json.Marshal sorts map keys, so equal params hash equally.
	payload, _ := json.Marshal([]any{w.Type, w.Params, userID})
	sum := sha1.Sum(payload)
	return "dashboard.widget." + id + "_" + hex.EncodeToString(sum[:])[:16]
}

// Detail is one widget being rendered.
type Detail struct {
	factory  *Factory
	widget   Widget
	userID   int64
	cacheKey string
	data     map[string]any
}

// CacheKey returns the key the widget's data is cached under.
func (d *Detail) CacheKey() string {
	return d.cacheKey
}

// Widget returns the widget being rendered.
func (d *Detail) Widget() Widget {
	return d.widget
}

// IsCached reports whether fresh data is cached and, if so, loads it as the
// template data.
func (d *Detail) IsCached() bool {
	e, ok := d.factory.cache.Get(d.cacheKey)
	if !ok {
		return false
	}
	if !d.factory.now().Before(e.expiresAt) {
		d.factory.cache.Remove(d.cacheKey)
		return false
	}
	d.data = e.data
	return true
}

// TemplateData returns the widget data.
func (d *Detail) TemplateData() map[string]any {
	return d.data
}

// SetTemplateData sets the widget data and caches it unless skipCache is
// set. It reports whether the data was cached.
func (d *Detail) SetTemplateData(data map[string]any, skipCache bool) bool {
	d.data = data
	if skipCache {
		return false
	}

	ttl := d.widget.CacheTimeout
	if ttl <= 0 || ttl > d.factory.ttl {
		ttl = d.factory.ttl
	}
	d.factory.cache.Add(d.cacheKey, entry{data: data, expiresAt: d.factory.now().Add(ttl)})
	return true
}

// FormatDateParam formats a date widget parameter.
func FormatDateParam(v any) (string, error) {
	switch t := v.(type) {
	case time.Time:
		return t.Format(DateParamLayout), nil
	case *time.Time:
		if t != nil {
			return t.Format(DateParamLayout), nil
		}
	}
	return "", ErrCouldNotFormatDateTime
}
