// Package profilecache keeps recent user profile lookups in memory so repeat
// form opens by the same user skip the loyalty API round trip.
package profilecache
