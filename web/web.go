// Package web holds browser assets embedded into the server binary.
package web

import _ "embed"

// FormSDK is the browser SDK served at /sdk/form-sdk.js.
//
//go:embed form-sdk.js
var FormSDK []byte
