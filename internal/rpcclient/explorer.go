package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Explorer is the typed façade over the explorer HTTP API (spec §4.1).
// A 404 on GetBlock/GetTx is the "not yet indexed" recoverable signal;
// everything else is classified like Node's RpcError.
type Explorer interface {
	GetBlockByHeight(ctx context.Context, height uint64) (json.RawMessage, error)
	GetBlockByHash(ctx context.Context, hash string) (json.RawMessage, error)
	GetTx(ctx context.Context, txid string) (json.RawMessage, error)
	GetAddress(ctx context.Context, addrHex string) (json.RawMessage, error)
	TokenOfOwnerByIndex(ctx context.Context, contractHex, ownerHex string, index uint64) (string, error)
	TokenURI(ctx context.Context, contractHex, tokenID string) (string, error)
}

type httpExplorer struct {
	base   string
	client *http.Client
	log    *logrus.Entry
}

// NewExplorer constructs an explorer client against the given base URL.
func NewExplorer(base string, timeout time.Duration) Explorer {
	return &httpExplorer{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
		log:    logrus.WithField("component", "rpcclient.explorer"),
	}
}

func (e *httpExplorer) get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.base+path, nil)
	if err != nil {
		return nil, newRpcError(path, 0, 0, "build request", ClassFatal, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, newRpcError(path, 0, 0, "transport", ClassTransient, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, newRpcError(path, resp.StatusCode, 0, "not indexed", ClassNotFound, nil)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, newRpcError(path, resp.StatusCode, 0, "explorer auth rejected", ClassFatal, nil)
	case resp.StatusCode >= 500:
		return nil, newRpcError(path, resp.StatusCode, 0, "explorer server error", ClassTransient, nil)
	case resp.StatusCode >= 400:
		return nil, newRpcError(path, resp.StatusCode, 0, "bad request", ClassValidation, nil)
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, newRpcError(path, resp.StatusCode, 0, "decode body", ClassTransient, err)
	}
	return raw, nil
}

func (e *httpExplorer) GetBlockByHeight(ctx context.Context, height uint64) (json.RawMessage, error) {
	return e.get(ctx, fmt.Sprintf("/api/block/%d", height))
}

func (e *httpExplorer) GetBlockByHash(ctx context.Context, hash string) (json.RawMessage, error) {
	return e.get(ctx, "/api/block/"+url.PathEscape(hash))
}

func (e *httpExplorer) GetTx(ctx context.Context, txid string) (json.RawMessage, error) {
	return e.get(ctx, "/api/tx/"+url.PathEscape(txid))
}

func (e *httpExplorer) GetAddress(ctx context.Context, addrHex string) (json.RawMessage, error) {
	return e.get(ctx, "/api/address/"+url.PathEscape(addrHex))
}

func (e *httpExplorer) TokenOfOwnerByIndex(ctx context.Context, contractHex, ownerHex string, index uint64) (string, error) {
	raw, err := e.get(ctx, fmt.Sprintf("/api/contract/%s/qrc721/tokenOfOwnerByIndex?owner=%s&index=%d",
		url.PathEscape(contractHex), url.QueryEscape(ownerHex), index))
	if err != nil {
		return "", err
	}
	var out struct {
		TokenID string `json:"tokenId"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", newRpcError("TokenOfOwnerByIndex", 0, 0, "decode", ClassTransient, err)
	}
	return out.TokenID, nil
}

func (e *httpExplorer) TokenURI(ctx context.Context, contractHex, tokenID string) (string, error) {
	raw, err := e.get(ctx, fmt.Sprintf("/api/contract/%s/qrc721/tokenURI/%s", url.PathEscape(contractHex), url.PathEscape(tokenID)))
	if err != nil {
		return "", err
	}
	var out struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", newRpcError("TokenURI", 0, 0, "decode", ClassTransient, err)
	}
	return out.URI, nil
}
