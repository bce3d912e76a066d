package main

import "errors"

var errServerCount = errors.New("flowgen: the bundled loopback runner supports exactly two servers")
