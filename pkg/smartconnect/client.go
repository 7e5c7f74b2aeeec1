// Package smartconnect is a minimal Angel One SmartAPI client: session login
// and historical candle data.
//
// Usage example:
//
//	sc := smartconnect.NewSmartConnect(smartconnect.Config{APIKey: "your_api_key"})
//	if _, err := sc.GenerateSession(ctx, "CLIENTID", "PIN", "123456"); err != nil { log.Fatal(err) }
//	candles, err := sc.GetCandleData(ctx, smartconnect.CandleParams{
//	    Exchange: "NSE", SymbolToken: "99926000", Interval: smartconnect.FiveMinute,
//	    From: time.Now().Add(-48 * time.Hour), To: time.Now(),
//	})
package smartconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ---- Config & client ----

type Config struct {
	APIKey      string
	AccessToken string

	RootURL        string        // default: https://apiconnect.angelone.in
	Debug          bool          // log request/response bodies
	Timeout        time.Duration // default: 7s
	Accept         string        // default: application/json
	UserType       string        // default: USER
	SourceID       string        // default: WEB
	ClientPublicIP string        // default 106.193.147.98
	ClientLocalIP  string        // default resolved, else 127.0.0.1
	ClientMAC      string        // default from interface MAC

	HTTPClient *http.Client // optional; overrides Timeout
}

type SmartConnect struct {
	apiKey string

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	feedToken    string
	userID       string

	rootURL    string
	debug      bool
	httpClient *http.Client

	// header fields
	accept         string
	userType       string
	sourceID       string
	clientPublicIP string
	clientLocalIP  string
	clientMAC      string

	// Optional callback for 403 TokenException
	SessionExpiryHook func()
}

const defaultRoot = "https://apiconnect.angelone.in"

var routes = map[string]string{
	"api.login":        "/rest/auth/angelbroking/user/v1/loginByPassword",
	"api.logout":       "/rest/secure/angelbroking/user/v1/logout",
	"api.refresh":      "/rest/auth/angelbroking/jwt/v1/generateTokens",
	"api.user.profile": "/rest/secure/angelbroking/user/v1/getProfile",
	"api.candle.data":  "/rest/secure/angelbroking/historical/v1/getCandleData",
}

// ErrSessionExpired is returned when the API rejects the access token.
var ErrSessionExpired = errors.New("smartapi: session expired")

// GetLocalIP finds the first non-loopback IPv4 address.
func GetLocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, address := range addrs {
		if ipNet, ok := address.(*net.IPNet); ok && !ipNet.IP.IsLoopback() {
			if ipNet.IP.To4() != nil {
				return ipNet.IP.String(), nil
			}
		}
	}
	return "", fmt.Errorf("no local IP found")
}

// NewSmartConnect initializes the client. It performs no network I/O.
func NewSmartConnect(cfg Config) *SmartConnect {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 7 * time.Second
	}
	if cfg.Accept == "" {
		cfg.Accept = "application/json"
	}
	if cfg.UserType == "" {
		cfg.UserType = "USER"
	}
	if cfg.SourceID == "" {
		cfg.SourceID = "WEB"
	}
	if cfg.ClientPublicIP == "" {
		cfg.ClientPublicIP = "106.193.147.98"
	}
	if cfg.ClientLocalIP == "" {
		localIP, err := GetLocalIP()
		if err != nil {
			log.Printf("[smartapi] local IP: %v", err)
		}
		cfg.ClientLocalIP = firstNonEmpty(localIP, "127.0.0.1")
	}
	if cfg.ClientMAC == "" {
		cfg.ClientMAC = getMACFallback()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &SmartConnect{
		apiKey:         cfg.APIKey,
		accessToken:    cfg.AccessToken,
		rootURL:        strings.TrimRight(cfg.RootURL, "/"),
		debug:          cfg.Debug,
		httpClient:     client,
		accept:         cfg.Accept,
		userType:       cfg.UserType,
		sourceID:       cfg.SourceID,
		clientPublicIP: cfg.ClientPublicIP,
		clientLocalIP:  cfg.ClientLocalIP,
		clientMAC:      cfg.ClientMAC,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func getMACFallback() string {
	ifs, _ := net.Interfaces()
	for _, ifc := range ifs {
		if len(ifc.HardwareAddr) > 0 {
			return ifc.HardwareAddr.String()
		}
	}
	return "00:11:22:33:44:55"
}

// ---- Helpers ----

func (sc *SmartConnect) requestHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", sc.accept)
	h.Set("Accept", sc.accept)
	h.Set("X-ClientLocalIP", sc.clientLocalIP)
	h.Set("X-ClientPublicIP", sc.clientPublicIP)
	h.Set("X-MACAddress", sc.clientMAC)
	h.Set("X-PrivateKey", sc.apiKey)
	h.Set("X-UserType", sc.userType)
	h.Set("X-SourceID", sc.sourceID)
	if tok := sc.AccessToken(); tok != "" {
		h.Set("Authorization", "Bearer "+tok)
	}
	return h
}

// post sends params as JSON to route and decodes the envelope.
func (sc *SmartConnect) post(ctx context.Context, route string, params map[string]any) (map[string]any, error) {
	uri, ok := routes[route]
	if !ok {
		return nil, fmt.Errorf("unknown route: %s", route)
	}
	reqURL := sc.rootURL + uri

	if params == nil {
		params = map[string]any{}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header = sc.requestHeaders()

	if sc.debug {
		log.Printf("[smartapi] request: POST %s", reqURL)
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("smartapi %s: %w", route, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("smartapi %s: read body: %w", route, err)
	}
	if sc.debug {
		log.Printf("[smartapi] response: code=%d body=%s", resp.StatusCode, raw)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("smartapi %s: couldn't parse JSON response (status %d): %w", route, resp.StatusCode, err)
	}

	// {"error_type": "TokenException", "message": "..."}
	if et, ok := out["error_type"].(string); ok && et != "" {
		msg, _ := out["message"].(string)
		if resp.StatusCode == http.StatusForbidden && et == "TokenException" {
			if sc.SessionExpiryHook != nil {
				sc.SessionExpiryHook()
			}
			return out, fmt.Errorf("%w: %s", ErrSessionExpired, msg)
		}
		return out, fmt.Errorf("smartapi %s: %s: %s", route, et, msg)
	}
	if st, ok := out["status"].(bool); ok && !st {
		msg, _ := out["message"].(string)
		code, _ := out["errorcode"].(string)
		return out, fmt.Errorf("smartapi %s: status=false code=%s message=%s", route, code, msg)
	}
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("smartapi %s: http %d", route, resp.StatusCode)
	}
	return out, nil
}

// ---- Setters/Getters ----

func (sc *SmartConnect) SetAccessToken(t string) {
	sc.mu.Lock()
	sc.accessToken = t
	sc.mu.Unlock()
}

func (sc *SmartConnect) AccessToken() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.accessToken
}

func (sc *SmartConnect) UserID() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.userID
}

func (sc *SmartConnect) FeedToken() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.feedToken
}

// ---- Session ----

// GenerateSession logs in with client code, PIN and a current TOTP code,
// stores the returned tokens and returns the user profile payload.
func (sc *SmartConnect) GenerateSession(ctx context.Context, clientCode, password, totp string) (map[string]any, error) {
	params := map[string]any{"clientcode": clientCode, "password": password, "totp": totp}
	res, err := sc.post(ctx, "api.login", params)
	if err != nil {
		return res, err
	}

	data, ok := res["data"].(map[string]any)
	if !ok {
		return res, errors.New("smartapi: unexpected login response format")
	}

	jwtToken, _ := data["jwtToken"].(string)
	refreshToken, _ := data["refreshToken"].(string)
	feedToken, _ := data["feedToken"].(string)
	if jwtToken == "" {
		return res, errors.New("smartapi: login returned no jwtToken")
	}

	sc.mu.Lock()
	sc.accessToken = jwtToken
	sc.refreshToken = refreshToken
	sc.feedToken = feedToken
	sc.mu.Unlock()

	user, err := sc.GetProfile(ctx, refreshToken)
	if err != nil {
		return user, err
	}
	if udata, ok := user["data"].(map[string]any); ok {
		if cc, _ := udata["clientcode"].(string); cc != "" {
			sc.mu.Lock()
			sc.userID = cc
			sc.mu.Unlock()
		}
	}
	log.Printf("[smartapi] session established for %s", clientCode)
	return user, nil
}

// GetProfile returns the logged-in user's profile.
func (sc *SmartConnect) GetProfile(ctx context.Context, refreshToken string) (map[string]any, error) {
	return sc.post(ctx, "api.user.profile", map[string]any{"refreshToken": refreshToken})
}

// RenewAccessToken exchanges the refresh token for a new access token.
func (sc *SmartConnect) RenewAccessToken(ctx context.Context) error {
	sc.mu.RLock()
	params := map[string]any{"jwtToken": sc.accessToken, "refreshToken": sc.refreshToken}
	sc.mu.RUnlock()

	res, err := sc.post(ctx, "api.refresh", params)
	if err != nil {
		return err
	}
	data, _ := res["data"].(map[string]any)
	jwt, _ := data["jwtToken"].(string)
	if jwt == "" {
		return errors.New("smartapi: token refresh returned no jwtToken")
	}
	sc.mu.Lock()
	sc.accessToken = jwt
	if rt, _ := data["refreshToken"].(string); rt != "" {
		sc.refreshToken = rt
	}
	sc.mu.Unlock()
	return nil
}

// TerminateSession logs the client out.
func (sc *SmartConnect) TerminateSession(ctx context.Context, clientCode string) error {
	_, err := sc.post(ctx, "api.logout", map[string]any{"clientcode": clientCode})
	return err
}
