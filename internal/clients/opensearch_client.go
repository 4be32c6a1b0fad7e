package clients

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github.com/spacesedan/ytindex/config"
	"github.com/spacesedan/ytindex/internal/models"
)

type Opensearch struct {
	Client *opensearch.Client
}

// NewOpensearchClient builds a client for cfg.Endpoint. With SigV4 set, requests are signed
// with credentials from the default AWS chain; otherwise basic auth is used when configured.
func NewOpensearchClient(ctx context.Context, cfg config.OpensearchConfig) (*Opensearch, error) {
	osCfg := opensearch.Config{
		Addresses: []string{cfg.Endpoint},
	}

	if cfg.SigV4 {
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		osCfg.Transport = NewSigV4Transport(awsCfg.Credentials, v4.NewSigner(), awsCfg.Region, "es")
	} else {
		osCfg.Username = cfg.Username
		osCfg.Password = cfg.Password
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenSearch client: %w", err)
	}

	slog.Info("[OpenSearchClient] Client initialized",
		slog.String("endpoint", cfg.Endpoint),
		slog.Bool("sigv4", cfg.SigV4))

	return &Opensearch{Client: client}, nil
}

type sigV4Transport struct {
	credentials aws.CredentialsProvider
	signer      *v4.Signer
	region      string
	service     string
	next        http.RoundTripper
}

func NewSigV4Transport(creds aws.CredentialsProvider, signer *v4.Signer, region string, service string) http.RoundTripper {
	return &sigV4Transport{
		credentials: creds,
		signer:      signer,
		region:      region,
		service:     service,
		next:        http.DefaultTransport,
	}
}

func (t *sigV4Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	creds, err := t.credentials.Retrieve(ctx)
	if err != nil {
		return nil, err
	}

	signedReq := req.Clone(ctx)
	signedReq.Header.Del("Authorization")

	// the signature covers the payload, so the body has to be read up front
	var payload []byte
	if req.Body != nil && req.Body != http.NoBody {
		payload, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		signedReq.Body = io.NopCloser(bytes.NewReader(payload))
		signedReq.ContentLength = int64(len(payload))
	}
	sum := sha256.Sum256(payload)

	err = t.signer.SignHTTP(ctx, creds, signedReq, hex.EncodeToString(sum[:]),
		t.service, t.region, time.Now())
	if err != nil {
		return nil, err
	}

	return t.next.RoundTrip(signedReq)
}

func (o *Opensearch) IsHealthy(ctx context.Context) bool {
	req := opensearchapi.ClusterHealthReq{}
	res, err := o.Client.Do(ctx, req, nil)
	if err != nil {
		return false
	}
	defer res.Body.Close()

	if res.IsError() {
		return false
	}

	return res.StatusCode == http.StatusOK
}

// IndexExists issues HEAD /<index>. Only 200 and 404 are answers; anything else is an error.
func (o *Opensearch) IndexExists(ctx context.Context, index string) (bool, error) {
	req := opensearchapi.IndicesExistsReq{Indices: []string{index}}
	res, err := o.Client.Do(ctx, req, nil)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("opensearch error: %s", res.Status())
	}
}

func (o *Opensearch) CreateIndex(ctx context.Context, index string, body []byte) error {
	req := opensearchapi.IndicesCreateReq{
		Index: index,
		Body:  bytes.NewReader(body),
	}
	res, err := o.Client.Do(ctx, req, nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s: %s", res.Status(), readPreview(res.Body))
	}
	return nil
}

// Bulk posts an NDJSON body to _bulk. A non-2xx status is returned as an error; per-item
// failures are left in the response for the caller.
func (o *Opensearch) Bulk(ctx context.Context, body []byte) (models.BulkResponse, error) {
	var out models.BulkResponse

	req := opensearchapi.BulkReq{Body: bytes.NewReader(body)}
	res, err := o.Client.Do(ctx, req, nil)
	if err != nil {
		return out, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return out, fmt.Errorf("opensearch error: %s: %s", res.Status(), readPreview(res.Body))
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode bulk response: %w", err)
	}
	return out, nil
}

func (o *Opensearch) Refresh(ctx context.Context, indices ...string) error {
	req := opensearchapi.IndicesRefreshReq{Indices: indices}
	res, err := o.Client.Do(ctx, req, nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.Status())
	}
	return nil
}

func (o *Opensearch) Count(ctx context.Context, index string) (int64, error) {
	res, err := o.Client.Do(ctx, countReq{index: index}, nil)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("opensearch error: %s", res.Status())
	}

	var out struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return out.Count, nil
}

// countReq is GET /<index>/_count with no query, counting every document.
type countReq struct {
	index string
}

func (r countReq) GetRequest() (*http.Request, error) {
	return http.NewRequest(http.MethodGet, "/"+url.PathEscape(r.index)+"/_count", nil)
}

func readPreview(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
