package engine

import (
	"context"
	"database/sql"
	"fmt"

	"queryd/internal/translate"
)

// InstallHTTPFS installs and loads the httpfs extension so COPY TO can write
// to object storage. Safe to call without credentials.
func InstallHTTPFS(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "INSTALL httpfs; LOAD httpfs;"); err != nil {
		return fmt.Errorf("extension setup (httpfs): %w", err)
	}
	return nil
}

// CreateS3Secret creates a named DuckDB secret for S3-compatible storage.
func CreateS3Secret(ctx context.Context, db *sql.DB, name, keyID, secret, endpoint, region, urlStyle string) error {
	if name == "" {
		return fmt.Errorf("secret name is required")
	}
	secretSQL := fmt.Sprintf(`CREATE OR REPLACE SECRET %s (
	TYPE S3,
	KEY_ID %s,
	SECRET %s,
	ENDPOINT %s,
	REGION %s,
	URL_STYLE %s
)`,
		translate.QuoteIdentifier(name),
		translate.QuoteLiteral(keyID),
		translate.QuoteLiteral(secret),
		translate.QuoteLiteral(endpoint),
		translate.QuoteLiteral(region),
		translate.QuoteLiteral(urlStyle),
	)
	if _, err := db.ExecContext(ctx, secretSQL); err != nil {
		return fmt.Errorf("create S3 secret %q: %w", name, err)
	}
	return nil
}

// CreateAzureSecret creates a named DuckDB secret for Azure Blob Storage.
// When connectionString is set it takes precedence over the account pair.
func CreateAzureSecret(ctx context.Context, db *sql.DB, name, accountName, accountKey, connectionString string) error {
	if name == "" {
		return fmt.Errorf("secret name is required")
	}
	var secretSQL string
	if connectionString != "" {
		secretSQL = fmt.Sprintf(`CREATE OR REPLACE SECRET %s (
	TYPE AZURE,
	CONNECTION_STRING %s
)`,
			translate.QuoteIdentifier(name),
			translate.QuoteLiteral(connectionString),
		)
	} else {
		secretSQL = fmt.Sprintf(`CREATE OR REPLACE SECRET %s (
	TYPE AZURE,
	ACCOUNT_NAME %s,
	ACCOUNT_KEY %s
)`,
			translate.QuoteIdentifier(name),
			translate.QuoteLiteral(accountName),
			translate.QuoteLiteral(accountKey),
		)
	}
	if _, err := db.ExecContext(ctx, secretSQL); err != nil {
		return fmt.Errorf("create Azure secret %q: %w", name, err)
	}
	return nil
}

// CreateGCSSecret creates a named DuckDB secret for Google Cloud Storage.
func CreateGCSSecret(ctx context.Context, db *sql.DB, name, keyFilePath string) error {
	if name == "" {
		return fmt.Errorf("secret name is required")
	}
	secretSQL := fmt.Sprintf(`CREATE OR REPLACE SECRET %s (
	TYPE GCS,
	KEY_FILE_PATH %s
)`,
		translate.QuoteIdentifier(name),
		translate.QuoteLiteral(keyFilePath),
	)
	if _, err := db.ExecContext(ctx, secretSQL); err != nil {
		return fmt.Errorf("create GCS secret %q: %w", name, err)
	}
	return nil
}

// DropSecret removes a named DuckDB secret of any type.
func DropSecret(ctx context.Context, db *sql.DB, name string) error {
	if name == "" {
		return fmt.Errorf("secret name is required")
	}
	dropSQL := fmt.Sprintf("DROP SECRET IF EXISTS %s", translate.QuoteIdentifier(name))
	if _, err := db.ExecContext(ctx, dropSQL); err != nil {
		return fmt.Errorf("drop secret %q: %w", name, err)
	}
	return nil
}
