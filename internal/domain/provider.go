package domain

// ProviderType identifies the backend family a provider belongs to
type ProviderType string

const (
	ProviderTypeLocal    ProviderType = "local"
	ProviderTypeSubsonic ProviderType = "subsonic"
	ProviderTypeJellyfin ProviderType = "jellyfin"
)

// ProviderTypes lists every known type, local first
var ProviderTypes = []ProviderType{
	ProviderTypeLocal,
	ProviderTypeSubsonic,
	ProviderTypeJellyfin,
}

// LocalProviderID is the fixed type ID of the local provider singleton
const LocalProviderID int64 = 0

// Provider identifies one configured backend. Identity is (Type, TypeID);
// the pair maps 1:1 to one live data source instance.
type Provider struct {
	Type    ProviderType `json:"type"`
	TypeID  int64        `json:"type_id"`
	Name    string       `json:"name"`
	Visible bool         `json:"visible"`
}

// Is reports whether the provider has the given identity
func (p Provider) Is(providerType ProviderType, typeID int64) bool {
	return p.Type == providerType && p.TypeID == typeID
}

// ProviderArgument describes one typed configuration argument a provider
// type requires. Rules is a go-playground/validator tag evaluated against
// the supplied value before a provider row is written.
type ProviderArgument struct {
	Key      string
	Required bool
	Secret   bool
	Rules    string
}

// ProviderArguments holds the argument values for one configured provider,
// keyed by ProviderArgument.Key.
type ProviderArguments map[string]string

// Argument keys shared by the remote provider types
const (
	ArgServer               = "server"
	ArgUsername             = "username"
	ArgPassword             = "password"
	ArgUseLegacyAuth        = "use_legacy_authentication"
	ArgUseLegacyAuthEnabled = "true"
)

var subsonicArguments = []ProviderArgument{
	{Key: ArgServer, Required: true, Rules: "required,url"},
	{Key: ArgUsername, Required: true, Rules: "required"},
	{Key: ArgPassword, Required: true, Secret: true, Rules: "required"},
	{Key: ArgUseLegacyAuth, Rules: "omitempty,boolean"},
}

var jellyfinArguments = []ProviderArgument{
	{Key: ArgServer, Required: true, Rules: "required,url"},
	{Key: ArgUsername, Required: true, Rules: "required"},
	{Key: ArgPassword, Required: true, Secret: true, Rules: "required"},
}

// Arguments returns the ordered configuration arguments of the provider
// type. The local type takes none; it can never be user-configured.
func (t ProviderType) Arguments() []ProviderArgument {
	switch t {
	case ProviderTypeSubsonic:
		return subsonicArguments
	case ProviderTypeJellyfin:
		return jellyfinArguments
	default:
		return nil
	}
}

// String returns the type's wire name
func (t ProviderType) String() string { return string(t) }
