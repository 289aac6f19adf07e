// Package dash detects Dash button presses in ARP traffic.
//
// A button joins the network and broadcasts ARP when pressed. The Listener
// classifies each captured frame, keeps the messages sent by the configured
// button and collapses the repeated broadcasts of one press into one Event.
package dash
