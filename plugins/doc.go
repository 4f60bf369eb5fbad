// Package plugins hosts optional plugin subpackages installed through
// core.Service.InstallPlugin. It contains no runtime code itself; the guard
// test beside this file keeps plugin packages off the storage backends.
package plugins
