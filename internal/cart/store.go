package cart

import (
	"encoding/json"
	"fmt"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const sessionKey = "cart"

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// Store loads and replaces the cart of the current request's session
type Store interface {
	Load(c *gin.Context) *Cart
	Save(c *gin.Context, cart *Cart) error
}

// SessionStore keeps the cart as JSON inside the gin session.
// The sessions middleware must run before any handler using it.
type SessionStore struct{}

// NewSessionStore creates a session-backed cart store
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Load returns the session cart, or an empty one when none is stored or the
// stored value cannot be decoded
func (s *SessionStore) Load(c *gin.Context) *Cart {
	raw, ok := sessions.Default(c).Get(sessionKey).(string)
	if !ok || raw == "" {
		return New()
	}
	cart := New()
	if err := json.Unmarshal([]byte(raw), cart); err != nil {
		log.WithError(err).Warn("Discarding unreadable cart from session")
		return New()
	}
	cart.ensure()
	return cart
}

// Save replaces the session cart wholesale
func (s *SessionStore) Save(c *gin.Context, cart *Cart) error {
	session := sessions.Default(c)
	if cart.IsEmpty() {
		session.Delete(sessionKey)
	} else {
		data, err := json.Marshal(cart)
		if err != nil {
			return fmt.Errorf("encoding cart: %w", err)
		}
		session.Set(sessionKey, string(data))
	}
	return session.Save()
}
