package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnavailable is returned when the resolver is not initialized.
var ErrUnavailable = errors.New("geoip resolver unavailable")

// Resolver looks up client countries in a MaxMind GeoIP2/GeoLite2 country
// database. A nil *Resolver is valid and resolves nothing.
type Resolver struct {
	reader *geoip2.Reader
}

// NewResolver opens the database at path. An empty path disables lookups and
// returns a nil resolver.
func NewResolver(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	return &Resolver{reader: reader}, nil
}

// Enabled reports whether lookups are backed by a database.
func (r *Resolver) Enabled() bool {
	return r != nil && r.reader != nil
}

// CountryCode returns the ISO country code for ip. Private and loopback
// addresses resolve to the empty string.
func (r *Resolver) CountryCode(ip string) (string, error) {
	if !r.Enabled() {
		return "", ErrUnavailable
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return "", nil
	}
	record, err := r.reader.Country(parsed)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup country: %w", err)
	}
	if record == nil {
		return "", nil
	}
	return strings.ToUpper(record.Country.IsoCode), nil
}

// Lookup adapts the resolver to the locale middleware. It returns nil when
// lookups are disabled.
func (r *Resolver) Lookup() func(ip string) (string, error) {
	if !r.Enabled() {
		return nil
	}
	return r.CountryCode
}

// Close closes the underlying database reader.
func (r *Resolver) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.reader.Close()
}
