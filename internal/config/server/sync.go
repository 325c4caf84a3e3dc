package server

// SyncServerConfig describes the identity this installation presents to
// peers and how it bootstraps a fresh catalog
type SyncServerConfig struct {
	AccountName string `mapstructure:"account_name" yaml:"account_name"`
	DeviceName  string `mapstructure:"device_name"  yaml:"device_name"`
	DeviceClass string `mapstructure:"device_class" yaml:"device_class"`
	DeviceKey   string `mapstructure:"device_key"   yaml:"device_key"`
	RootFolder  string `mapstructure:"root_folder"  yaml:"root_folder"`

	// RefreshInterval controls the periodic availability sweep; empty
	// disables it
	RefreshInterval string `mapstructure:"refresh_interval" yaml:"refresh_interval"`
}
