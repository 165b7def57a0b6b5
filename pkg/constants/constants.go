package constants

const (
	// Application metadata
	AppName        = "tgconfig"
	AppDisplayName = "TG-Commerce Config Service"
	AppDescription = "Runtime configuration for the TG-Admin, TG-KDS and TG-WebPOS front ends"

	// Front-end application keys
	AppAdmin = "admin"
	AppKDS   = "kds"
	AppPOS   = "pos"

	// Data directory name under PROGRAMDATA (Windows) or /var/lib (Linux)
	DataDirName = "TGConfig"

	// File names
	ConfigFileName    = "tgconfig.json"
	DatabaseFileName  = "settings.db"
	StoreKeyFileName  = "store.key"
	MachineIDFileName = "machine_id"

	// Environment
	EnvPrefix = "TG_"

	// API endpoints
	DevAPIBase        = "http://localhost:8001"
	ProductionAPIBase = "https://api.tgcommerce.io/v1"

	// Shared front-end defaults
	DefaultVersion = "1.0.0"
	DefaultStoreID = 1

	// TG-Admin
	AdminAppName = "TG-Admin"

	// TG-WebPOS
	POSAppName = "TG-WebPOS"

	// TG-KDS
	KDSAppName         = "TG-KDS"
	KDSDefaultMode     = "local"
	KDSLocalPOSIP      = "192.168.0.100"
	KDSLocalPort       = 8080
	KDSRefreshInterval = 3000 // milliseconds
	KDSUseWebSocket    = true
	KDSWebSocketPath   = "/ws"
	KDSCloudWSSuffix   = "/kds/ws"

	// HTTP Server settings
	DefaultPort                     = 8090
	DefaultMaxConcurrentConnections = 100
	DefaultRequestTimeout           = 30 // seconds
	DefaultLogLevel                 = "info"

	// Client settings
	DefaultClientRetryMax     = 3
	DefaultClientRetryWaitMin = 200 // milliseconds

	// Service settings
	ServiceName        = "TGConfigService"
	ServiceDisplayName = "TG-Commerce Config Service"
	ServiceDescription = "Serves runtime configuration to the TG-Commerce admin, kitchen display and web POS applications"

	// Registry paths (Windows) / File paths (Linux)
	RegistryBasePath = `SOFTWARE\TGConfig`
)
