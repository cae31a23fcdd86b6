// Package middleware 提供了 HTTP 請求處理的中間件。
//
// 包含請求 ID、請求日誌以及跨來源（CORS）政策，WebSocket 升級時的來源檢查也使用同一份設定。
package middleware
