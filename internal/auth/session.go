// ABOUTME: Maps decoded token claims onto one canonical session context
// ABOUTME: Accepts flat and nested payload shapes and enriches missing names best-effort

package auth

import (
	"context"
	"log/slog"

	"github.com/tidwall/gjson"
)

// SessionContext is the normalized user and charging-station context carried
// by a vendor token. Absent fields are empty strings.
type SessionContext struct {
	UserID        string `json:"userId"`
	EVSEID        string `json:"evseId"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	EVSEReference string `json:"evseReference"`
}

// Profile is the subset of a loyalty user record used for personalization.
type Profile struct {
	FirstName string
	LastName  string
}

// ProfileLookup fetches a user's name from the loyalty API.
type ProfileLookup interface {
	LookupProfile(ctx context.Context, userID string) (Profile, error)
}

// Reference keys in lookup order for each payload shape.
var (
	nestedReferenceKeys = []string{"evsePhysicalReference", "physicalReference", "evseReference"}
	flatReferenceKeys   = []string{"evseReference", "evsePhysicalReference", "physicalReference"}
)

// Normalize extracts a SessionContext from JSON claims. A "payload" object
// selects the nested shape and fields are read from payload.parameters;
// otherwise the claims are the flat record. Numbers become their decimal text.
func Normalize(claims []byte) SessionContext {
	root := gjson.ParseBytes(claims)

	src := root
	refKeys := flatReferenceKeys
	if payload := root.Get("payload"); payload.IsObject() {
		src = payload.Get("parameters")
		refKeys = nestedReferenceKeys
	}

	return SessionContext{
		UserID:        field(src, "userId"),
		EVSEID:        field(src, "evseId"),
		FirstName:     field(src, "firstName"),
		LastName:      field(src, "lastName"),
		EVSEReference: firstField(src, refKeys...),
	}
}

// field returns a string or number member as text; anything else is "".
func field(obj gjson.Result, key string) string {
	if !obj.IsObject() {
		return ""
	}
	v := obj.Get(gjson.Escape(key))
	switch v.Type {
	case gjson.String, gjson.Number:
		return v.String()
	default:
		return ""
	}
}

func firstField(obj gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := field(obj, key); v != "" {
			return v
		}
	}
	return ""
}

// Normalizer resolves a raw token into a SessionContext.
type Normalizer struct {
	decoder  *Decoder
	profiles ProfileLookup
	logger   *slog.Logger
}

// NewNormalizer creates a normalizer. profiles may be nil to skip enrichment.
func NewNormalizer(decoder *Decoder, profiles ProfileLookup, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{decoder: decoder, profiles: profiles, logger: logger}
}

// Resolve decodes the token and returns its normalized context. Only
// decoding failures are returned; enrichment failures leave the context as is.
func (n *Normalizer) Resolve(ctx context.Context, tokenString string) (*SessionContext, error) {
	sc, err := n.Decode(tokenString)
	if err != nil {
		return nil, err
	}

	n.enrich(ctx, sc)
	return sc, nil
}

// Decode verifies and normalizes the token without contacting the loyalty API.
func (n *Normalizer) Decode(tokenString string) (*SessionContext, error) {
	decoded, err := n.decoder.Decode(tokenString)
	if err != nil {
		return nil, err
	}

	sc := Normalize(decoded.Claims)
	n.logger.Debug("token decoded",
		"strategy", decoded.Strategy,
		"verified", decoded.Verified,
		"has_user_id", sc.UserID != "",
		"has_first_name", sc.FirstName != "",
	)
	return &sc, nil
}

// enrich fills in the name from the loyalty API when the token carries a
// user ID but no first name.
func (n *Normalizer) enrich(ctx context.Context, sc *SessionContext) {
	if n.profiles == nil || sc.UserID == "" || sc.FirstName != "" {
		return
	}

	profile, err := n.profiles.LookupProfile(ctx, sc.UserID)
	if err != nil {
		n.logger.Warn("user lookup failed, continuing without name", "user_id", sc.UserID, "error", err)
		return
	}

	sc.FirstName = profile.FirstName
	if profile.LastName != "" {
		sc.LastName = profile.LastName
	}
}
