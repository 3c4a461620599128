package cmd

const (
	RootCmdName  = "carzone"
	RootCmdShort = "Used-car marketplace service"
	RootCmdLong  = `carzone runs a used-car marketplace: buyers search approved listings,
sellers submit cars after verifying their email, administrators moderate
submissions, and anyone can ask for a resale price estimate.`

	ServeCmdName  = "serve"
	ServeCmdShort = "Start the HTTP API"
	ServeCmdLong  = `Start the HTTP API. The database is migrated on start-up and expired
sessions and one-time codes are swept in the background.`

	MigrateCmdName  = "migrate"
	MigrateCmdShort = "Run database migrations"

	EstimateCmdName  = "estimate"
	EstimateCmdShort = "Estimate the resale price of a car"

	AdminCmdName        = "admin"
	AdminCmdShort       = "Administrator utilities"
	HashPasswordCmdName = "hash-password"
	HashPasswordShort   = "Print the bcrypt hash for admin.password_hash"

	VersionCmdName  = "version"
	VersionCmdShort = "Print version information"
)
