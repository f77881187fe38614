package erpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Abraxas-365/filesmile/pkg/erp"
	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/Abraxas-365/filesmile/pkg/logx"
	"github.com/go-resty/resty/v2"
)

const (
	userProbeForm   = "LOGPART"
	userProbeField  = "PARTNAME"
	adminProbeForm  = "ENVIRONMENT"
	adminProbeField = "DNAME"

	acceptODataNoMetadata = "application/json;odata.metadata=none"
)

// Options configures the ERP HTTP client.
type Options struct {
	AppID              string
	AppKey             string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Client validates credentials against a Priority-style OData endpoint.
type Client struct {
	http *resty.Client
	opts Options
}

var _ erp.Gateway = (*Client)(nil)

// New builds a client with a shared connection pool. Retries are disabled:
// each validation is exactly one request.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	rc := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetDisableWarn(true).
		SetHeader("Accept", acceptODataNoMetadata).
		SetHeader("X-App-Id", opts.AppID)
	if opts.AppKey != "" {
		rc.SetHeader("X-App-Key", opts.AppKey)
	}
	if opts.InsecureSkipVerify {
		rc.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	return &Client{http: rc, opts: opts}
}

// Validate reads one row of the parts catalog, which every ERP user can access.
func (c *Client) Validate(ctx context.Context, conn erp.Connection, creds erp.Credentials) error {
	return c.probe(ctx, conn, creds, userProbeForm, userProbeField)
}

// ValidateAdmin reads the environment table, which requires admin rights.
func (c *Client) ValidateAdmin(ctx context.Context, conn erp.Connection, creds erp.Credentials) error {
	return c.probe(ctx, conn, creds, adminProbeForm, adminProbeField)
}

func (c *Client) probe(ctx context.Context, conn erp.Connection, creds erp.Credentials, form, field string) error {
	if creds.IsEmpty() {
		return erp.ErrCredentialAuthFailed().WithDetail("reason", "empty credentials")
	}

	endpoint, err := ProbeURL(conn, form)
	if err != nil {
		return erp.ErrCredentialConnectionFailed().WithCause(err).WithDetail("reason", "invalid ERP base URL")
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(creds.Username, creds.Secret).
		Get(endpoint + "?$select=" + field + "&$top=1")

	entry := logx.WithFields(logx.Fields{
		"erp_company": conn.Company,
		"form":        form,
		"elapsed_ms":  time.Since(start).Milliseconds(),
	})

	if err != nil {
		classified := classifyTransport(err)
		entry.WithError(err).Warnf("ERP probe failed: %s", errx.CodeOf(classified))
		return classified
	}

	if classified := classifyStatus(resp.StatusCode()); classified != nil {
		entry.WithField("status", resp.StatusCode()).Debugf("ERP probe rejected: %s", classified.Code)
		return classified
	}

	entry.Debug("ERP probe succeeded")
	return nil
}

// ProbeURL builds {base}/{tabula_ini}/{company}/{form}.
func ProbeURL(conn erp.Connection, form string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(conn.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errors.New("base URL must be absolute http(s)")
	}
	if conn.Company == "" {
		return "", errors.New("company is required")
	}

	tabula := conn.TabulaINI
	if tabula == "" {
		tabula = "tabula.ini"
	}
	return base + "/" + url.PathEscape(tabula) + "/" + url.PathEscape(conn.Company) + "/" + form, nil
}

func classifyStatus(status int) *errx.Error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return erp.ErrCredentialAuthFailed().WithDetail("status", status)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return erp.ErrCredentialTimeout().WithDetail("status", status)
	default:
		return erp.ErrCredentialConnectionFailed().WithDetail("status", status)
	}
}

func classifyTransport(err error) *errx.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return erp.ErrCredentialTimeout().WithCause(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return erp.ErrCredentialTimeout().WithCause(err)
	}
	return erp.ErrCredentialConnectionFailed().WithCause(err)
}
