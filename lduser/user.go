// Package lduser defines the User type and its builder, representing the person or
// entity a flag is evaluated for.
package lduser

import (
	"sort"

	"github.com/launchdarkly/go-server-sdk-sub008/ldvalue"
)

// User contains the attributes of a user that flags may be evaluated or targeted
// against. Key is the only required attribute.
type User struct {
	key                   string
	secondary             ldvalue.Value
	ip                    ldvalue.Value
	email                 ldvalue.Value
	name                  ldvalue.Value
	avatar                ldvalue.Value
	firstName             ldvalue.Value
	lastName              ldvalue.Value
	country               ldvalue.Value
	anonymous             bool
	hasAnonymous          bool
	custom                map[string]ldvalue.Value
	privateAttributeNames []string
}

// builtinAttrNames lists the non-custom attributes that can be resolved by name; it
// backs IsBuiltinAttribute.
var builtinAttrNames = map[string]bool{
	"key": true, "secondary": true, "ip": true, "email": true, "name": true,
	"avatar": true, "firstName": true, "lastName": true, "country": true, "anonymous": true,
}

// NewUser creates a user identified only by key.
func NewUser(key string) User {
	return User{key: key}
}

// NewAnonymousUser creates an anonymous user identified by key.
func NewAnonymousUser(key string) User {
	return User{key: key, anonymous: true, hasAnonymous: true}
}

// Key returns the user's unique key.
func (u User) Key() string { return u.key }

// Secondary returns the secondary key attribute, if set.
func (u User) Secondary() (ldvalue.Value, bool) { return u.attr(u.secondary) }

// IP returns the ip attribute, if set.
func (u User) IP() (ldvalue.Value, bool) { return u.attr(u.ip) }

// Email returns the email attribute, if set.
func (u User) Email() (ldvalue.Value, bool) { return u.attr(u.email) }

// Name returns the name attribute, if set.
func (u User) Name() (ldvalue.Value, bool) { return u.attr(u.name) }

// Avatar returns the avatar attribute, if set.
func (u User) Avatar() (ldvalue.Value, bool) { return u.attr(u.avatar) }

// FirstName returns the firstName attribute, if set.
func (u User) FirstName() (ldvalue.Value, bool) { return u.attr(u.firstName) }

// LastName returns the lastName attribute, if set.
func (u User) LastName() (ldvalue.Value, bool) { return u.attr(u.lastName) }

// Country returns the country attribute, if set.
func (u User) Country() (ldvalue.Value, bool) { return u.attr(u.country) }

// Anonymous returns the anonymous attribute and whether it was set.
func (u User) Anonymous() (bool, bool) { return u.anonymous, u.hasAnonymous }

func (u User) attr(v ldvalue.Value) (ldvalue.Value, bool) {
	if v.IsNull() {
		return v, false
	}
	return v, true
}

// Custom returns a custom attribute value by name.
func (u User) Custom(name string) (ldvalue.Value, bool) {
	v, ok := u.custom[name]
	return v, ok
}

// CustomKeys returns the names of all custom attributes.
func (u User) CustomKeys() []string {
	if len(u.custom) == 0 {
		return nil
	}
	keys := make([]string, 0, len(u.custom))
	for k := range u.custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PrivateAttributeNames returns the per-user list of attributes to redact from events.
func (u User) PrivateAttributeNames() []string {
	return u.privateAttributeNames
}

// ValueOf resolves a built-in or custom attribute by name for clause matching and
// bucketing. The special name "key" always resolves even though it has no dedicated
// storage slot alongside the optional attributes.
func (u User) ValueOf(attr string) ldvalue.Value {
	switch attr {
	case "key":
		return ldvalue.String(u.key)
	case "secondary":
		return u.secondary
	case "ip":
		return u.ip
	case "email":
		return u.email
	case "name":
		return u.name
	case "avatar":
		return u.avatar
	case "firstName":
		return u.firstName
	case "lastName":
		return u.lastName
	case "country":
		return u.country
	case "anonymous":
		if u.hasAnonymous {
			return ldvalue.Bool(u.anonymous)
		}
		return ldvalue.Null()
	default:
		if v, ok := u.custom[attr]; ok {
			return v
		}
		return ldvalue.Null()
	}
}

// IsBuiltinAttribute reports whether name is one of the fixed attributes (as opposed
// to a custom attribute). "key" and "anonymous" cannot be made private.
func IsBuiltinAttribute(name string) bool {
	return builtinAttrNames[name]
}

// Builder constructs a User using the builder pattern. Obtain one with NewUserBuilder,
// call setters, then Build().
type Builder interface {
	Secondary(value string) PrivatableBuilder
	IP(value string) PrivatableBuilder
	Email(value string) PrivatableBuilder
	Name(value string) PrivatableBuilder
	Avatar(value string) PrivatableBuilder
	FirstName(value string) PrivatableBuilder
	LastName(value string) PrivatableBuilder
	Country(value string) PrivatableBuilder
	Anonymous(value bool) Builder
	Custom(name string, value ldvalue.Value) PrivatableBuilder
	Build() User
}

// PrivatableBuilder is returned by setters whose attribute can be marked private.
type PrivatableBuilder interface {
	Builder
	AsPrivateAttribute() Builder
}

type builder struct {
	user         User
	privateAttrs map[string]bool
}

type privatableBuilder struct {
	b        *builder
	attrName string
}

// NewUserBuilder creates a new Builder for a user identified by key.
func NewUserBuilder(key string) Builder {
	return &builder{user: User{key: key}}
}

// NewUserBuilderFromUser creates a Builder pre-populated from an existing User.
func NewUserBuilderFromUser(from User) Builder {
	b := &builder{user: from}
	if len(from.custom) > 0 {
		b.user.custom = make(map[string]ldvalue.Value, len(from.custom))
		for k, v := range from.custom {
			b.user.custom[k] = v
		}
	}
	if len(from.privateAttributeNames) > 0 {
		b.privateAttrs = make(map[string]bool, len(from.privateAttributeNames))
		for _, n := range from.privateAttributeNames {
			b.privateAttrs[n] = true
		}
	}
	return b
}

func (b *builder) canMakePrivate(attr string) PrivatableBuilder {
	return &privatableBuilder{b: b, attrName: attr}
}

func (b *builder) Secondary(value string) PrivatableBuilder {
	b.user.secondary = ldvalue.String(value)
	return b.canMakePrivate("secondary")
}

func (b *builder) IP(value string) PrivatableBuilder {
	b.user.ip = ldvalue.String(value)
	return b.canMakePrivate("ip")
}

func (b *builder) Email(value string) PrivatableBuilder {
	b.user.email = ldvalue.String(value)
	return b.canMakePrivate("email")
}

func (b *builder) Name(value string) PrivatableBuilder {
	b.user.name = ldvalue.String(value)
	return b.canMakePrivate("name")
}

func (b *builder) Avatar(value string) PrivatableBuilder {
	b.user.avatar = ldvalue.String(value)
	return b.canMakePrivate("avatar")
}

func (b *builder) FirstName(value string) PrivatableBuilder {
	b.user.firstName = ldvalue.String(value)
	return b.canMakePrivate("firstName")
}

func (b *builder) LastName(value string) PrivatableBuilder {
	b.user.lastName = ldvalue.String(value)
	return b.canMakePrivate("lastName")
}

func (b *builder) Country(value string) PrivatableBuilder {
	b.user.country = ldvalue.String(value)
	return b.canMakePrivate("country")
}

func (b *builder) Anonymous(value bool) Builder {
	b.user.anonymous = value
	b.user.hasAnonymous = true
	return b
}

func (b *builder) Custom(name string, value ldvalue.Value) PrivatableBuilder {
	if b.user.custom == nil {
		b.user.custom = make(map[string]ldvalue.Value)
	}
	b.user.custom[name] = value
	return b.canMakePrivate(name)
}

func (b *builder) Build() User {
	u := b.user
	if len(b.privateAttrs) > 0 {
		names := make([]string, 0, len(b.privateAttrs))
		for n := range b.privateAttrs {
			names = append(names, n)
		}
		sort.Strings(names)
		u.privateAttributeNames = names
	}
	return u
}

func (p *privatableBuilder) AsPrivateAttribute() Builder {
	if p.b.privateAttrs == nil {
		p.b.privateAttrs = make(map[string]bool)
	}
	p.b.privateAttrs[p.attrName] = true
	return p.b
}

func (p *privatableBuilder) Secondary(value string) PrivatableBuilder { return p.b.Secondary(value) }
func (p *privatableBuilder) IP(value string) PrivatableBuilder        { return p.b.IP(value) }
func (p *privatableBuilder) Email(value string) PrivatableBuilder    { return p.b.Email(value) }
func (p *privatableBuilder) Name(value string) PrivatableBuilder     { return p.b.Name(value) }
func (p *privatableBuilder) Avatar(value string) PrivatableBuilder   { return p.b.Avatar(value) }
func (p *privatableBuilder) FirstName(value string) PrivatableBuilder {
	return p.b.FirstName(value)
}
func (p *privatableBuilder) LastName(value string) PrivatableBuilder { return p.b.LastName(value) }
func (p *privatableBuilder) Country(value string) PrivatableBuilder  { return p.b.Country(value) }
func (p *privatableBuilder) Anonymous(value bool) Builder            { return p.b.Anonymous(value) }
func (p *privatableBuilder) Custom(name string, value ldvalue.Value) PrivatableBuilder {
	return p.b.Custom(name, value)
}
func (p *privatableBuilder) Build() User { return p.b.Build() }
