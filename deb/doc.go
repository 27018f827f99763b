// Package deb holds the small, shared vocabulary of Debian control-file
// field names and package member names that the importer package parses
// against: ControlField, ControlFile, and PackageFile.
package deb
