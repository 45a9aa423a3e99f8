package adminapi

// Init registers all admin API routes on the global web server
func Init() {
	registerDeviceRoutes()
	registerLinkRoutes()
	registerTopologyRoutes()
}
