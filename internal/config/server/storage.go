package server

// StorageServerConfig locates the on-disk state of the server. The data
// root is everything a backup captures; the storage root also holds the
// rebuildable state that backups leave out.
type StorageServerConfig struct {
	Root     string `mapstructure:"root"      yaml:"root"      validate:"required"`
	DataRoot string `mapstructure:"data_root" yaml:"data_root" validate:"required"`
}

// BackupServerConfig holds backup repository configuration
type BackupServerConfig struct {
	Root     string `mapstructure:"root"      yaml:"root"      validate:"required"`
	SourceID string `mapstructure:"source_id" yaml:"source_id" validate:"required,excludes=_"`
	Version  string `mapstructure:"version"   yaml:"version"   validate:"required,excludes=_"`
	Format   string `mapstructure:"format"    yaml:"format"    validate:"required,oneof=zip tar gztar bztar"`
}
