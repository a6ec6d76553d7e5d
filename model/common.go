package model

import "fmt"

type OperationKind string

const (
	CreateOperationKind OperationKind = "create"
	UpdateOperationKind OperationKind = "update"
	DeleteOperationKind OperationKind = "delete"
)

// Valid checks the OperationKind is one of the known values.
func (k OperationKind) Valid() bool {
	switch k {
	case CreateOperationKind, UpdateOperationKind, DeleteOperationKind:
		return true
	}

	return false
}

// KindForMethod maps a mutating HTTP method to its OperationKind.
func KindForMethod(method string) (OperationKind, error) {
	switch method {
	case "POST":
		return CreateOperationKind, nil
	case "PUT", "PATCH":
		return UpdateOperationKind, nil
	case "DELETE":
		return DeleteOperationKind, nil
	}

	return "", fmt.Errorf("%s: not a mutating method: %s", "method", method)
}

type CacheBucket string

const (
	APICacheBucket    CacheBucket = "api"
	StaticCacheBucket CacheBucket = "static"
)
