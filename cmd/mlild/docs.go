package main

// General API documentation for swaggo. Run `swag init` to generate docs.
//
// @title           ML Insight Lab platform API
// @version         1.0
// @description     HTTP API for model deployment, data, variables and predictions.
//
// @contact.name   ML Insight Lab maintainers
// @contact.url    https://github.com/mlinsightlab/mlil
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @securityDefinitions.basic BasicAuth
//
// @BasePath  /
//
// @schemes http
