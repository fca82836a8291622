package core

const (
	PathPutObjects      = "/putObjects"
	PathGetObject       = "/getObject"
	PathListKeyVersions = "/listKeyVersions"
)

// PutObjectsRequest carries one write transaction. StoreID is nil in
// authenticated mode, where the server derives the store from the caller's
// credentials, and marshals as JSON null.
type PutObjectsRequest struct {
	StoreID          *string         `json:"store_id"`
	TransactionItems []EncryptedItem `json:"transaction_items"`
}

type GetObjectRequest struct {
	StoreID *string `json:"store_id"`
	Key     string  `json:"key"`
}

type ListKeyVersionsRequest struct {
	StoreID   *string `json:"store_id"`
	KeyPrefix *string `json:"key_prefix"`
}
