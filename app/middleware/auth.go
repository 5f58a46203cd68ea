package appMiddleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

type contextKey string

const UserIDKey contextKey = "userID"
const AllowedScopesKey contextKey = "allowedScopes"

// InitDataMaxAge bounds auth_date freshness. Older payloads are replays.
const InitDataMaxAge = 24 * time.Hour

// WebAppUser is the `user` field of a WebApp initData payload.
type WebAppUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// WebAppChat is the `chat` field, present when the app was opened from a group.
type WebAppChat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

// InitData is the validated, decoded payload of a Telegram WebApp session.
type InitData struct {
	User     *WebAppUser
	Chat     *WebAppChat
	AuthDate time.Time
	QueryID  string
}

// AllowedScopeIDs lists the scope ids this session may read: the user's own id
// plus the chat id when the app was opened inside a group.
func (d InitData) AllowedScopeIDs() map[string]struct{} {
	allowed := make(map[string]struct{}, 2)
	if d.User != nil {
		allowed[strconv.FormatInt(d.User.ID, 10)] = struct{}{}
	}
	if d.Chat != nil {
		allowed[strconv.FormatInt(d.Chat.ID, 10)] = struct{}{}
	}
	return allowed
}

// ValidateInitData checks a raw initData query string against the bot token.
//
// Per the platform contract: secret = HMAC-SHA256(key="WebAppData", bot token);
// data_check_string = sorted key=value pairs excluding hash, joined by \n;
// the hash field must equal hex(HMAC-SHA256(secret, data_check_string)), and
// auth_date must be within maxAge of now.
func ValidateInitData(raw, botToken string, maxAge time.Duration, now time.Time) (InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return InitData{}, fmt.Errorf("malformed init data: %w", err)
	}

	receivedHash := values.Get("hash")
	if receivedHash == "" {
		return InitData{}, fmt.Errorf("init data missing hash")
	}
	values.Del("hash")

	pairs := make([]string, 0, len(values))
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	dataCheckString := strings.Join(pairs, "\n")

	secretMac := hmac.New(sha256.New, []byte("WebAppData"))
	secretMac.Write([]byte(botToken))
	secretKey := secretMac.Sum(nil)

	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(dataCheckString))
	expectedHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expectedHash), []byte(receivedHash)) {
		return InitData{}, fmt.Errorf("init data signature mismatch")
	}

	authDateUnix, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return InitData{}, fmt.Errorf("init data auth_date invalid: %w", err)
	}
	authDate := time.Unix(authDateUnix, 0)
	if now.Sub(authDate) > maxAge {
		return InitData{}, fmt.Errorf("init data expired")
	}

	data := InitData{AuthDate: authDate, QueryID: values.Get("query_id")}
	if rawUser := values.Get("user"); rawUser != "" {
		var user WebAppUser
		if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
			return InitData{}, fmt.Errorf("init data user field invalid: %w", err)
		}
		data.User = &user
	}
	if rawChat := values.Get("chat"); rawChat != "" {
		var chat WebAppChat
		if err := json.Unmarshal([]byte(rawChat), &chat); err != nil {
			return InitData{}, fmt.Errorf("init data chat field invalid: %w", err)
		}
		data.Chat = &chat
	}
	return data, nil
}
