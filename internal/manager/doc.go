// Package manager tracks model deployments and drives their container
// lifecycle through a Runner. One deployment exists per (name, flavor,
// version-or-alias) key; containers join the configured model network and
// serve MLflow models resolved from the tracking server.
package manager
