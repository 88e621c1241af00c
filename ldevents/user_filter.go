package ldevents

import (
	"sort"

	"github.com/launchdarkly/go-server-sdk-sub008/ldvalue"
	"github.com/launchdarkly/go-server-sdk-sub008/lduser"
)

// filteredUser is the wire representation of a user after private-attribute
// redaction: present optional attributes are pointers so that encoding/json's
// omitempty can drop absent ones, and PrivateAttrs lists (sorted) the names that were
// removed.
type filteredUser struct {
	Key          string         `json:"key"`
	Secondary    *string        `json:"secondary,omitempty"`
	IP           *string        `json:"ip,omitempty"`
	Email        *string        `json:"email,omitempty"`
	Name         *string        `json:"name,omitempty"`
	Avatar       *string        `json:"avatar,omitempty"`
	FirstName    *string        `json:"firstName,omitempty"`
	LastName     *string        `json:"lastName,omitempty"`
	Country      *string        `json:"country,omitempty"`
	Anonymous    *bool          `json:"anonymous,omitempty"`
	Custom       *ldvalue.Value `json:"custom,omitempty"`
	PrivateAttrs []string       `json:"privateAttrs,omitempty"`
}

// scrubbedUser pairs the filtered wire shape with the key, for callers that need the
// key without re-parsing the user (e.g. to decide about the index-event lookup).
type scrubbedUser struct {
	filteredUser filteredUser
}

// userFilter applies allAttributesPrivate / global privateAttributeNames / per-user
// privateAttributeNames redaction when serializing a user for an analytics event.
type userFilter struct {
	allAttributesPrivate bool
	globalPrivateAttrs   map[string]bool
}

func newUserFilter(config EventsConfiguration) userFilter {
	globals := make(map[string]bool, len(config.PrivateAttributeNames))
	for _, a := range config.PrivateAttributeNames {
		globals[a] = true
	}
	return userFilter{
		allAttributesPrivate: config.AllAttributesPrivate,
		globalPrivateAttrs:   globals,
	}
}

type optionalStringAttr struct {
	name string
	get  func(lduser.User) (ldvalue.Value, bool)
	set  func(*filteredUser, *string)
}

var optionalStringAttrs = []optionalStringAttr{
	{"secondary", lduser.User.Secondary, func(fu *filteredUser, v *string) { fu.Secondary = v }},
	{"ip", lduser.User.IP, func(fu *filteredUser, v *string) { fu.IP = v }},
	{"email", lduser.User.Email, func(fu *filteredUser, v *string) { fu.Email = v }},
	{"name", lduser.User.Name, func(fu *filteredUser, v *string) { fu.Name = v }},
	{"avatar", lduser.User.Avatar, func(fu *filteredUser, v *string) { fu.Avatar = v }},
	{"firstName", lduser.User.FirstName, func(fu *filteredUser, v *string) { fu.FirstName = v }},
	{"lastName", lduser.User.LastName, func(fu *filteredUser, v *string) { fu.LastName = v }},
	{"country", lduser.User.Country, func(fu *filteredUser, v *string) { fu.Country = v }},
}

// scrubUser produces the redacted wire form of u according to the filter's policy.
func (f userFilter) scrubUser(u lduser.User) scrubbedUser {
	fu := filteredUser{Key: u.Key()}
	perUserPrivate := make(map[string]bool, len(u.PrivateAttributeNames()))
	for _, a := range u.PrivateAttributeNames() {
		perUserPrivate[a] = true
	}
	isPrivate := func(name string) bool {
		return f.allAttributesPrivate || f.globalPrivateAttrs[name] || perUserPrivate[name]
	}

	var redacted []string
	for _, attr := range optionalStringAttrs {
		v, ok := attr.get(u)
		if !ok {
			continue
		}
		if isPrivate(attr.name) {
			redacted = append(redacted, attr.name)
			continue
		}
		s := v.StringValue()
		attr.set(&fu, &s)
	}

	if anon, ok := u.Anonymous(); ok {
		fu.Anonymous = &anon
	}

	if keys := u.CustomKeys(); len(keys) > 0 {
		var b *ldvalue.ObjectBuilder
		for _, k := range keys {
			if isPrivate(k) {
				redacted = append(redacted, k)
				continue
			}
			if b == nil {
				b = ldvalue.BuildObject()
			}
			v, _ := u.Custom(k)
			b.Set(k, v)
		}
		if b != nil {
			v := b.Build()
			fu.Custom = &v
		}
	}

	if len(redacted) > 0 {
		sort.Strings(redacted)
		fu.PrivateAttrs = redacted
	}

	return scrubbedUser{filteredUser: fu}
}
