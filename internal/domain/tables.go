package domain

var Tables = []interface{}{
	// Network
	&NetDevice{},
	&NetLink{},
}
