// Package ldclient is the main package for the LaunchDarkly SDK.
//
// This package contains the types and methods for the SDK client (LDClient) and its overall
// configuration (Config, DataStoreFactory, DataSourceFactory).
//
// Subpackages in this repository provide the supporting types: lduser (user attributes),
// ldvalue (the JSON-like value type used for flag variations and custom event data),
// ldreason (evaluation reasons and errors), ldmodel (the flag/segment/rule data model used
// by the evaluator and the data store), ldeval (the flag evaluator itself), ldevents
// (analytics and diagnostic event construction and delivery), and ldlog (the logging
// abstraction). Most applications only need lduser and ldvalue directly; the rest are
// wired together automatically by MakeClient/MakeCustomClient.
package ldclient
