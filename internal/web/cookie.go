package web

import (
	"net/http"
	"time"

	"voucherdesk/pkg/sealer"
)

const SessionCookieName = "voucher_session"

type cookieCodec struct {
	sealer *sealer.Sealer
	ttl    time.Duration
	secure bool
}

// sessionID returns the page session id carried by r, or "" when the cookie
// is missing or does not open.
func (c *cookieCodec) sessionID(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	id, err := c.sealer.Open(cookie.Value)
	if err != nil {
		return ""
	}
	return id
}

func (c *cookieCodec) set(w http.ResponseWriter, id string) error {
	token, err := c.sealer.Seal(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c *cookieCodec) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
