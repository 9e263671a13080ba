// Package hcl provides the HCL implementation of the config.Loader
// interface. It parses the optional workspace file, evaluates its attributes
// against the process environment, and keeps command argument lists as
// expressions so they can be evaluated later, once per invocation.
package hcl
