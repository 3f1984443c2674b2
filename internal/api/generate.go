// Package api はOpenAPI定義から生成したHTTP APIのリクエスト・レスポンス型を提供します。
package api

//go:generate go tool oapi-codegen -config cfg.yaml openapi.yaml
