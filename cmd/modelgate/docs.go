package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           modelgate API
// @version         1.0
// @description     HTTP API for intent routing and model lifecycle management.
//
// @contact.name   modelgate maintainers
// @contact.url    https://github.com/your-org/modelgate
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
