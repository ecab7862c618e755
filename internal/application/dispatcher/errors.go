package dispatcher

import "errors"

// errMissingDescriptorFields is returned by the register/run handlers when a
// command omits the minimum fields a ProcessDescriptor requires.
var errMissingDescriptorFields = errors.New("missing required parameters: id, executablePath")
