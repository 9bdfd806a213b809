package export

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
)

var _ FilePresigner = (*AzurePresigner)(nil)

// AzureOptions configures an AzurePresigner. Only account-key
// authentication is supported; service principal presigning is not
// implemented.
type AzureOptions struct {
	AccountName string
	AccountKey  string
}

// AzurePresigner generates presigned (SAS) URLs for Azure Blob Storage
// objects using shared-key credentials.
type AzurePresigner struct {
	client *azblob.Client
}

// NewAzurePresigner creates a presigner for Azure Blob Storage.
func NewAzurePresigner(opts AzureOptions) (*AzurePresigner, error) {
	if opts.AccountName == "" || opts.AccountKey == "" {
		return nil, fmt.Errorf("Azure config is incomplete")
	}

	sharedKeyCred, err := azblob.NewSharedKeyCredential(opts.AccountName, opts.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", opts.AccountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, sharedKeyCred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}

	return &AzurePresigner{client: client}, nil
}

// PresignGetObject generates a presigned (SAS) GET URL for an Azure Blob
// Storage object. path is a full Azure storage URI (abfss://, az://, or
// https://).
func (p *AzurePresigner) PresignGetObject(ctx context.Context, path string, expiry time.Duration) (string, error) {
	container, key, err := parseAzurePath(path)
	if err != nil {
		return "", fmt.Errorf("parse Azure path %q: %w", path, err)
	}

	blobClient := p.client.ServiceClient().NewContainerClient(container).NewBlobClient(key)
	sasURL, err := blobClient.GetSASURL(sas.BlobPermissions{Read: true}, time.Now().Add(expiry), nil)
	if err != nil {
		return "", fmt.Errorf("generate SAS URL for %q: %w", path, err)
	}
	return sasURL, nil
}

// parseAzurePath extracts container and key from an Azure storage URI.
//
// Supported formats:
//
//	abfss://container@account.dfs.core.windows.net/path/to/file
//	az://container/path/to/file
//	https://account.blob.core.windows.net/container/path/to/file
func parseAzurePath(path string) (container, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", fmt.Errorf("parse Azure path %q: %w", path, err)
	}

	switch u.Scheme {
	case "abfss":
		// abfss://container@account.dfs.core.windows.net/path/to/file
		// Go's url.Parse treats "container" as userinfo (before @) and
		// "account.dfs.core.windows.net" as host.
		if u.User == nil {
			return "", "", fmt.Errorf("abfss path %q missing container@account component", path)
		}
		container = u.User.Username()
		key = strings.TrimPrefix(u.Path, "/")

	case "az":
		// az://container/path/to/file
		container = u.Host
		key = strings.TrimPrefix(u.Path, "/")

	case "https":
		// https://account.blob.core.windows.net/container/path/to/file
		if !strings.Contains(u.Host, ".blob.core.windows.net") {
			return "", "", fmt.Errorf("unrecognized Azure HTTPS host %q in path %q", u.Host, path)
		}
		trimmed := strings.TrimPrefix(u.Path, "/")
		parts := strings.SplitN(trimmed, "/", 2)
		container = parts[0]
		if len(parts) > 1 {
			key = parts[1]
		}

	default:
		return "", "", fmt.Errorf("unrecognized Azure path scheme %q in %q", u.Scheme, path)
	}

	if container == "" {
		return "", "", fmt.Errorf("empty container in Azure path %q", path)
	}
	if key == "" {
		return container, "", fmt.Errorf("empty key in Azure path %q", path)
	}

	return container, key, nil
}
