package ibkr

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const sendRequestURL = "https://gdcdyn.interactivebrokers.com/Universal/servlet/FlexStatementService.SendRequest"

// FlexClient downloads statements from the Flex Web Service. The protocol is
// two steps: SendRequest queues the report and returns a reference code,
// GetStatement fetches it. A freshly queued report answers error 1018 until
// generated; that one is waited out once, everything else is final. Failed
// downloads are never retried automatically, queueing reports is costly on
// the broker side.
type FlexClient struct {
	token   string
	queryID string
	base    string // SendRequest endpoint, overridable in tests
	wait    time.Duration
	http    *http.Client
}

func NewFlexClient(token, queryID string) *FlexClient {
	return &FlexClient{
		token:   token,
		queryID: queryID,
		base:    sendRequestURL,
		wait:    5 * time.Second,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// flexServiceResponse is the service's control envelope, returned by
// SendRequest and by GetStatement while the report is not ready.
type flexServiceResponse struct {
	XMLName       xml.Name `xml:"FlexStatementResponse"`
	Status        string   `xml:"Status"`
	ReferenceCode string   `xml:"ReferenceCode"`
	URL           string   `xml:"Url"`
	ErrorCode     string   `xml:"ErrorCode"`
	ErrorMessage  string   `xml:"ErrorMessage"`
}

const errStatementInProgress = "1018"

// Download queues the configured flex query and returns the statement body.
func (c *FlexClient) Download() ([]byte, error) {
	if c.token == "" || c.queryID == "" {
		return nil, fmt.Errorf("flex credentials not configured")
	}

	body, err := c.get(c.base, url.Values{"t": {c.token}, "q": {c.queryID}, "v": {"3"}})
	if err != nil {
		return nil, fmt.Errorf("flex send request: %w", err)
	}
	var resp flexServiceResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("flex send request: %w", err)
	}
	if resp.Status != "Success" {
		return nil, fmt.Errorf("flex send request refused: %s %s", resp.ErrorCode, resp.ErrorMessage)
	}

	statementURL := resp.URL
	params := url.Values{"t": {c.token}, "q": {resp.ReferenceCode}, "v": {"3"}}
	body, err = c.get(statementURL, params)
	if err != nil {
		return nil, fmt.Errorf("flex get statement: %w", err)
	}
	if code, msg := serviceError(body); code == errStatementInProgress {
		time.Sleep(c.wait)
		body, err = c.get(statementURL, params)
		if err != nil {
			return nil, fmt.Errorf("flex get statement: %w", err)
		}
		if code, msg = serviceError(body); code != "" {
			return nil, fmt.Errorf("flex statement not ready: %s %s", code, msg)
		}
	} else if code != "" {
		return nil, fmt.Errorf("flex get statement refused: %s %s", code, msg)
	}
	return body, nil
}

func (c *FlexClient) get(endpoint string, params url.Values) ([]byte, error) {
	resp, err := c.http.Get(endpoint + "?" + params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// serviceError reports the error code carried by a control envelope, or ""
// when the body is an actual statement.
func serviceError(body []byte) (code, msg string) {
	var resp flexServiceResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return "", ""
	}
	return resp.ErrorCode, resp.ErrorMessage
}
