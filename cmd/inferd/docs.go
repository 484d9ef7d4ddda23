package main

// General API documentation for swaggo. Run `swag init -g cmd/inferd/docs.go`
// to regenerate docs.
//
// @title           inferd API
// @version         1.0
// @description     OpenAI-compatible chat completion API backed by a single local llama model.
//
// @contact.name   inferd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
