package deb

// ControlField represents a standard field in a Debian control file.
type ControlField string

const (
	FieldPackage      ControlField = "Package"
	FieldVersion      ControlField = "Version"
	FieldArchitecture ControlField = "Architecture"
	FieldSource       ControlField = "Source"
	FieldDepends      ControlField = "Depends"
)

// ControlFile represents a standard file found in the control.tar.gz archive.
type ControlFile string

// FileControl is the control.tar.gz member holding the control paragraph.
const FileControl ControlFile = "control"

// PackageFile represents a standard file found in the .deb archive (ar format).
type PackageFile string

const (
	PkgControlTarGz PackageFile = "control.tar.gz"
	PkgDataTarGz    PackageFile = "data.tar.gz"
)
